// Package redistokens is a Redis-backed auth.TokenStore for deployments that
// keep session rows out of the relational database. Each token gets a value
// key, membership in a per-user set, and a score in a global issued-at index
// so the expiry sweep stays a range query.
package redistokens

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	auth "github.com/urvue/go-auth"
)

// ErrRedisUnavailable wraps transport failures so callers can tell an
// infrastructure outage from a missing session.
var ErrRedisUnavailable = errors.New("redis unavailable", errors.CategoryInternal)

// Store implements auth.TokenStore over Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger auth.Logger
}

var _ auth.TokenStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the default logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix changes the Redis key namespace (default "stk").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewStore builds the store. ttl bounds each token key's Redis expiry; the
// issued-at index is still swept by auth.TokenSweeper so the per-user sets do
// not leak members.
func NewStore(client redis.UniversalClient, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	s := &Store{
		redis:  client,
		prefix: "stk",
		ttl:    ttl,
		logger: auth.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":t:" + token
}

func (s *Store) userKey(userID uuid.UUID) string {
	return s.prefix + ":u:" + userID.String()
}

func (s *Store) indexKey() string {
	return s.prefix + ":issued"
}

// Create persists the token value key, adds it to the owner's set, and scores
// it in the issued-at index, all in one transaction.
func (s *Store) Create(ctx context.Context, record *auth.SessionToken) (*auth.SessionToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.IssuedAt == nil {
		now := time.Now()
		record.IssuedAt = &now
	}

	value := record.UserID.String() + ":" + strconv.FormatInt(record.IssuedAt.UnixNano(), 10)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(record.Token), value, s.ttl)
		pipe.SAdd(ctx, s.userKey(record.UserID), record.Token)
		pipe.Expire(ctx, s.userKey(record.UserID), s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(record.IssuedAt.UnixNano()),
			Member: record.Token,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return record, nil
}

// FindWithUser returns the stored row when the token exists and belongs to
// userID. The owning User is never populated here; callers fall back to the
// directory.
func (s *Store) FindWithUser(ctx context.Context, token string, userID uuid.UUID) (*auth.SessionToken, error) {
	value, err := s.redis.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ownerID, issuedAt, err := parseTokenValue(value)
	if err != nil {
		s.logger.Warn("Dropping corrupt session token entry", "token_key", s.tokenKey(token))
		_, _ = s.deleteTokens(ctx, userID, token)
		return nil, auth.ErrSessionNotFound
	}

	if ownerID != userID {
		return nil, auth.ErrSessionNotFound
	}

	return &auth.SessionToken{
		Token:    token,
		UserID:   ownerID,
		IssuedAt: &issuedAt,
	}, nil
}

// DeleteAllForUser drops every token in the user's set.
func (s *Store) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tokens, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}
	return s.deleteTokens(ctx, userID, tokens...)
}

// DeleteOlderThan removes every token scored before cutoff in the issued-at
// index. Value keys may have already lapsed via Redis TTL; the index and the
// per-user sets are cleaned regardless.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tokens, err := s.redis.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixNano(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	var removed int64
	for _, token := range tokens {
		value, err := s.redis.Get(ctx, s.tokenKey(token)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		ownerID := uuid.Nil
		if err == nil {
			if parsed, _, perr := parseTokenValue(value); perr == nil {
				ownerID = parsed
			}
		}

		n, err := s.deleteTokens(ctx, ownerID, token)
		if err != nil {
			return removed, err
		}
		removed += n
	}

	return removed, nil
}

func (s *Store) deleteTokens(ctx context.Context, userID uuid.UUID, tokens ...string) (int64, error) {
	keys := make([]string, 0, len(tokens))
	members := make([]any, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, s.tokenKey(token))
		members = append(members, token)
	}

	var delCmd *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		if userID != uuid.Nil {
			pipe.SRem(ctx, s.userKey(userID), members...)
		}
		pipe.ZRem(ctx, s.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return delCmd.Val(), nil
}

func parseTokenValue(value string) (uuid.UUID, time.Time, error) {
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] != ':' {
			continue
		}
		ownerID, err := uuid.Parse(value[:i])
		if err != nil {
			return uuid.Nil, time.Time{}, err
		}
		nanos, err := strconv.ParseInt(value[i+1:], 10, 64)
		if err != nil {
			return uuid.Nil, time.Time{}, err
		}
		return ownerID, time.Unix(0, nanos), nil
	}
	return uuid.Nil, time.Time{}, fmt.Errorf("malformed token value")
}
