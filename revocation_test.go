package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	auth "github.com/urvue/go-auth"
)

func TestLogoutRevokesBothSides(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	ctx := context.Background()

	user := seedUser(t, repo.Users(), "ext-1", "UR1")
	for _, tk := range []string{"token-a", "token-b"} {
		_, err := repo.SessionTokens().Create(ctx, &auth.SessionToken{Token: tk, UserID: user.ID})
		require.NoError(t, err)
	}

	provider := new(MockIdentityProvider)
	provider.On("RevokeRefreshTokens", mock.Anything, "ext-1").Return(nil)

	revoker := auth.NewRevoker(provider, repo.SessionTokens())
	result, err := revoker.Logout(ctx, user)
	require.NoError(t, err)

	assert.True(t, result.ProviderRevoked)
	assert.True(t, result.TokensCleared)
	assert.Equal(t, int64(2), result.TokensDeleted)

	_, err = repo.SessionTokens().FindWithUser(ctx, "token-a", user.ID)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestLogoutClearsLocalSessionsEvenWhenProviderFails(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	ctx := context.Background()

	user := seedUser(t, repo.Users(), "ext-1", "UR1")
	_, err := repo.SessionTokens().Create(ctx, &auth.SessionToken{Token: "token-a", UserID: user.ID})
	require.NoError(t, err)

	provider := new(MockIdentityProvider)
	provider.On("RevokeRefreshTokens", mock.Anything, "ext-1").
		Return(fmt.Errorf("provider is down"))

	revoker := auth.NewRevoker(provider, repo.SessionTokens())
	result, err := revoker.Logout(ctx, user)
	require.Error(t, err)

	assert.False(t, result.ProviderRevoked)
	assert.True(t, result.TokensCleared)
	assert.Equal(t, int64(1), result.TokensDeleted)

	// local rows are gone regardless of the provider outcome
	_, err = repo.SessionTokens().FindWithUser(ctx, "token-a", user.ID)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestLogoutReportsStoreFailure(t *testing.T) {
	user := &auth.User{ID: uuid.New(), ExternalID: "ext-1"}

	provider := new(MockIdentityProvider)
	provider.On("RevokeRefreshTokens", mock.Anything, "ext-1").Return(nil)

	store := new(MockTokenStore)
	store.On("DeleteAllForUser", mock.Anything, user.ID).
		Return(int64(0), fmt.Errorf("connection lost"))

	revoker := auth.NewRevoker(provider, store)
	result, err := revoker.Logout(context.Background(), user)
	require.Error(t, err)

	assert.True(t, result.ProviderRevoked)
	assert.False(t, result.TokensCleared)
	assert.Contains(t, err.Error(), "logout incomplete")
}
