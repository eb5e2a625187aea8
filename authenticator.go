package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// LoginResult is returned to the client on a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     bool
	Profile   Profile
	IsNewUser bool
}

// LoginOption tweaks a single login call.
type LoginOption func(*loginOptions)

type loginOptions struct {
	clientPlatform string
}

// WithClientPlatform records the caller's platform; "android" and "ios"
// flip the user's mobile-login flag on first use.
func WithClientPlatform(platform string) LoginOption {
	return func(o *loginOptions) {
		o.clientPlatform = strings.ToLower(strings.TrimSpace(platform))
	}
}

// Auther orchestrates the signup/login protocol: credential verification,
// directory refresh or bootstrap, and session token issuance.
type Auther struct {
	verifier  *CredentialVerifier
	provider  IdentityProvider
	repo      RepositoryManager
	tokens    TokenService
	store     TokenStore
	bootstrap *accountBootstrap
	logger    Logger
}

// NewAuthenticator builds the login orchestrator. The token store defaults to
// the repository manager's SQL-backed store; override with WithTokenStore.
func NewAuthenticator(provider IdentityProvider, repo RepositoryManager, cfg Config) *Auther {
	logger := defLogger{}

	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		SessionTTL(cfg),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)

	referrals := NewReferralAllocator(repo.Users()).WithLogger(logger)

	return &Auther{
		verifier:  NewCredentialVerifier(provider).WithLogger(logger),
		provider:  provider,
		repo:      repo,
		tokens:    tokenService,
		store:     repo.SessionTokens(),
		bootstrap: newAccountBootstrap(repo, referrals, logger),
		logger:    logger,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	s.verifier = s.verifier.WithLogger(logger)
	s.bootstrap.logger = logger
	return s
}

// WithTokenService overrides the session token service.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithTokenStore overrides where issued session tokens are persisted.
func (s *Auther) WithTokenStore(store TokenStore) *Auther {
	if store != nil {
		s.store = store
	}
	return s
}

// TokenService returns the token service used by this orchestrator.
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login runs the full protocol for an Authorization header carrying a
// provider credential. Verification errors pass through with their kind
// intact; persistence failures surface generically.
func (s *Auther) Login(ctx context.Context, authorization string, opts ...LoginOption) (*LoginResult, error) {
	options := &loginOptions{}
	for _, opt := range opts {
		opt(options)
	}

	identity, err := s.verifier.VerifyHeader(ctx, authorization)
	if err != nil {
		s.logger.Info("Login rejected during verification", "error", err)
		return nil, err
	}

	isNewUser := false
	user, err := s.repo.Users().RefreshByExternalID(ctx, identity)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			s.logger.Error("Login directory refresh failed", "external_id", identity.ExternalID, "error", err)
			return nil, wrapPersistence(err, "could not refresh user record")
		}

		user, err = s.bootstrap.execute(ctx, identity)
		if err != nil {
			s.logger.Error("Login bootstrap failed", "external_id", identity.ExternalID, "error", err)
			return nil, err
		}
		isNewUser = true
	}

	if isMobilePlatform(options.clientPlatform) && !user.HasLoggedInFromMobile {
		if err := s.repo.Users().MarkMobileLogin(ctx, user.ID); err != nil {
			s.logger.Warn("Could not record mobile login", "user_id", user.ID.String(), "error", err)
		} else {
			user.HasLoggedInFromMobile = true
		}
	}

	token, expiresAt, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		s.logger.Error("Login token mint failed", "user_id", user.ID.String(), "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not mint session token")
	}

	if _, err := s.store.Create(ctx, &SessionToken{Token: token, UserID: user.ID}); err != nil {
		s.logger.Error("Login token persist failed", "user_id", user.ID.String(), "error", err)
		return nil, wrapPersistence(err, "could not persist session token")
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     user.IsAdmin,
		Profile:   NewProfileFromUser(user),
		IsNewUser: isNewUser,
	}, nil
}

// ResolveSession maps a locally verified token back to its live store row and
// owning user. A missing row means the session was revoked or never issued;
// callers treat both the same.
func (s *Auther) ResolveSession(ctx context.Context, userID, token string) (*User, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrCredentialInvalid
	}

	record, err := s.store.FindWithUser(ctx, token, uid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapPersistence(err, "could not look up session token")
	}

	if record.User != nil {
		return record.User, nil
	}

	user, err := s.repo.Users().GetByID(ctx, uid)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapPersistence(err, "could not load session user")
	}
	return user, nil
}

var _ Authenticator = (*Auther)(nil)

func isMobilePlatform(platform string) bool {
	return platform == "android" || platform == "ios"
}
