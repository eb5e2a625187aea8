package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenStore is the persistence surface shared by the SQL and Redis session
// token stores. Deletes are idempotent.
type TokenStore interface {
	Create(ctx context.Context, record *SessionToken) (*SessionToken, error)

	// FindWithUser locates a token row owned by userID. Implementations that
	// can join the owning User populate record.User; callers must tolerate a
	// nil User and fall back to the directory.
	FindWithUser(ctx context.Context, token string, userID uuid.UUID) (*SessionToken, error)

	// DeleteAllForUser removes every token owned by userID, invalidating all
	// of the user's devices at once.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteOlderThan removes tokens issued before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionTokens is the bun-backed TokenStore.
type SessionTokens interface {
	repository.Repository[*SessionToken]
	TokenStore
}

type sessionTokens struct {
	repository.Repository[*SessionToken]
	db *bun.DB
}

var (
	_ SessionTokens = (*sessionTokens)(nil)
	_ TokenStore    = (*sessionTokens)(nil)
)

// NewSessionTokensRepository wires the session token store over a bun DB.
func NewSessionTokensRepository(db *bun.DB) SessionTokens {
	repo := repository.NewRepository[*SessionToken](db, repository.ModelHandlers[*SessionToken]{
		NewRecord: func() *SessionToken { return &SessionToken{} },
		GetID: func(t *SessionToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *SessionToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &sessionTokens{
		Repository: repo,
		db:         db,
	}
}

func (s *sessionTokens) Create(ctx context.Context, record *SessionToken) (*SessionToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.IssuedAt == nil {
		now := time.Now()
		record.IssuedAt = &now
	}
	return s.Repository.CreateTx(ctx, s.db, record)
}

func (s *sessionTokens) FindWithUser(ctx context.Context, token string, userID uuid.UUID) (*SessionToken, error) {
	record := &SessionToken{}
	err := s.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *sessionTokens) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*SessionToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionTokens) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*SessionToken)(nil)).
		Where("issued_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
