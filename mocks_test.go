package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	auth "github.com/urvue/go-auth"
)

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyCredential(ctx context.Context, credential string, checkRevoked bool) (*auth.ExternalIdentity, error) {
	args := m.Called(ctx, credential, checkRevoked)
	identity, _ := args.Get(0).(*auth.ExternalIdentity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) RevokeRefreshTokens(ctx context.Context, externalID string) error {
	args := m.Called(ctx, externalID)
	return args.Error(0)
}

// MockTokenStore implements auth.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Create(ctx context.Context, record *auth.SessionToken) (*auth.SessionToken, error) {
	args := m.Called(ctx, record)
	rec, _ := args.Get(0).(*auth.SessionToken)
	return rec, args.Error(1)
}

func (m *MockTokenStore) FindWithUser(ctx context.Context, token string, userID uuid.UUID) (*auth.SessionToken, error) {
	args := m.Called(ctx, token, userID)
	rec, _ := args.Get(0).(*auth.SessionToken)
	return rec, args.Error(1)
}

func (m *MockTokenStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*auth.User)(nil),
		(*auth.SessionToken)(nil),
		(*auth.SearchProfile)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newTestConfig() auth.SimpleConfig {
	return auth.SimpleConfig{
		SigningKey: "test-secret-key-0123456789",
		SessionTTL: "1h",
		Issuer:     "urvue-test",
		Audience:   []string{"urvue-api"},
	}
}
