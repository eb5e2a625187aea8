package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/urvue/go-auth"
)

func seedUser(t *testing.T, users auth.Users, externalID, code string) *auth.User {
	t.Helper()
	created, err := users.Create(context.Background(), &auth.User{
		ExternalID:   externalID,
		DisplayName:  "User " + code,
		ReferralCode: code,
	})
	require.NoError(t, err)
	return created
}

func TestSessionTokensCreateAndFindWithUser(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	tokens := auth.NewSessionTokensRepository(db)
	ctx := context.Background()

	user := seedUser(t, users, "ext-1", "UR1")

	created, err := tokens.Create(ctx, &auth.SessionToken{
		Token:  "jwt-token-value",
		UserID: user.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.NotNil(t, created.IssuedAt)

	found, err := tokens.FindWithUser(ctx, "jwt-token-value", user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	require.NotNil(t, found.User)
	assert.Equal(t, "ext-1", found.User.ExternalID)
}

func TestSessionTokensFindWithUserRejectsWrongOwner(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	tokens := auth.NewSessionTokensRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "ext-1", "UR1")
	other := seedUser(t, users, "ext-2", "UR2")

	_, err := tokens.Create(ctx, &auth.SessionToken{Token: "jwt-token-value", UserID: owner.ID})
	require.NoError(t, err)

	_, err = tokens.FindWithUser(ctx, "jwt-token-value", other.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))

	_, err = tokens.FindWithUser(ctx, "never-issued", owner.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestSessionTokensDeleteAllForUser(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	tokens := auth.NewSessionTokensRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "ext-1", "UR1")
	other := seedUser(t, users, "ext-2", "UR2")

	for _, tk := range []string{"token-a", "token-b", "token-c"} {
		_, err := tokens.Create(ctx, &auth.SessionToken{Token: tk, UserID: owner.ID})
		require.NoError(t, err)
	}
	_, err := tokens.Create(ctx, &auth.SessionToken{Token: "token-other", UserID: other.ID})
	require.NoError(t, err)

	deleted, err := tokens.DeleteAllForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// deletes are idempotent
	deleted, err = tokens.DeleteAllForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// the other user's session survives
	_, err = tokens.FindWithUser(ctx, "token-other", other.ID)
	require.NoError(t, err)
}

func TestSessionTokensDeleteOlderThan(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	tokens := auth.NewSessionTokensRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "ext-1", "UR1")

	stale := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	_, err := tokens.Create(ctx, &auth.SessionToken{Token: "stale-token", UserID: owner.ID, IssuedAt: &stale})
	require.NoError(t, err)
	_, err = tokens.Create(ctx, &auth.SessionToken{Token: "fresh-token", UserID: owner.ID, IssuedAt: &fresh})
	require.NoError(t, err)

	deleted, err := tokens.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = tokens.FindWithUser(ctx, "stale-token", owner.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound))

	_, err = tokens.FindWithUser(ctx, "fresh-token", owner.ID)
	require.NoError(t, err)
}

func TestSearchProfilesLifecycle(t *testing.T) {
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	profiles := auth.NewSearchProfilesRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "ext-1", "UR1")

	created, err := profiles.Create(ctx, &auth.SearchProfile{UserID: owner.ID})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotNil(t, created.RecentSearches)

	found, err := profiles.GetByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.UserID)

	// one companion document per user
	_, err = profiles.Create(ctx, &auth.SearchProfile{UserID: owner.ID})
	require.Error(t, err)

	require.NoError(t, profiles.DeleteForUser(ctx, owner.ID))
	_, err = profiles.GetByUserID(ctx, owner.ID)
	require.Error(t, err)
}
