package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ExternalIdentity is the provider's verdict about a credential. It is
// produced fresh on every verification call and never persisted as-is.
type ExternalIdentity struct {
	// ExternalID is the provider's stable subject identifier.
	ExternalID string
	// DisplayName as reported by the provider at verification time.
	DisplayName string
	// AvatarURL as reported by the provider at verification time.
	AvatarURL string
}

// IdentityProvider wraps the external identity provider. Implementations must
// normalize provider failures into the package error taxonomy:
// ErrCredentialInvalid, ErrCredentialExpired, ErrCredentialRevoked for
// credential verdicts, ErrProviderUnavailable for everything else.
type IdentityProvider interface {
	// VerifyCredential validates a raw provider credential. When checkRevoked
	// is true the provider is also asked whether the underlying session was
	// revoked after issuance.
	VerifyCredential(ctx context.Context, credential string, checkRevoked bool) (*ExternalIdentity, error)

	// RevokeRefreshTokens invalidates every provider-side refresh credential
	// for the given subject. Irreversible.
	RevokeRefreshTokens(ctx context.Context, externalID string) error
}

// TokenService mints and validates locally signed session tokens.
type TokenService interface {
	Generate(userID string) (token string, expiresAt time.Time, err error)
	Validate(token string) (*SessionClaims, error)
}

// Authenticator is the login orchestrator surface consumed by the HTTP layer.
type Authenticator interface {
	Login(ctx context.Context, authorization string, opts ...LoginOption) (*LoginResult, error)
}

// Config holds the settings injected into the orchestrator and the gates.
// There are no global configuration reads anywhere in the package.
type Config interface {
	// GetSigningKey is the HMAC secret for session tokens.
	GetSigningKey() string
	// GetSessionTTL is a duration string, e.g. "24h".
	GetSessionTTL() string
	GetIssuer() string
	GetAudience() []string
	// GetContextKey is the router locals key the gates store the actor under.
	GetContextKey() string
	// GetAPIKeyHeader names the header compared by the API key gate.
	GetAPIKeyHeader() string
	// GetAPIKey is the shared secret for internal endpoints.
	GetAPIKey() string
}

// DefaultSessionTTL applies when Config.GetSessionTTL is empty or malformed.
const DefaultSessionTTL = 24 * time.Hour

// SessionTTL parses the configured TTL, falling back to DefaultSessionTTL.
func SessionTTL(cfg Config) time.Duration {
	raw := cfg.GetSessionTTL()
	if raw == "" {
		return DefaultSessionTTL
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DefaultSessionTTL
	}
	return d
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
