// Package gates provides the per-request capability checks: required-auth,
// optional-auth, admin-only, and API-key. The auth gates verify the session
// token locally (signature + embedded expiry) and then require a live token
// store row. A cryptographically valid token is rejected once its row is
// gone, which is how cross-device revocation takes effect.
package gates

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	auth "github.com/urvue/go-auth"
)

// DefaultAuthScheme is the exact, case-sensitive prefix authenticated
// endpoints require on the Authorization header. Note the lowercase scheme:
// it is a different contract from the login endpoint's "Bearer ".
const DefaultAuthScheme = "bearer "

// DefaultHeaderName is the header the auth gates read the session token from.
const DefaultHeaderName = "Authorization"

// TokenValidator verifies a session token locally and returns its claims.
type TokenValidator interface {
	Validate(token string) (*auth.SessionClaims, error)
}

// SessionResolver maps locally valid claims to the live session row and its
// owning user. auth.Auther implements it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID, token string) (*auth.User, error)
}

// Config drives the required-auth and optional-auth gates.
type Config struct {
	// Filter skips the gate entirely when it returns true.
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// TokenValidator is required; use the orchestrator's TokenService or a
	// keyfunc-backed validator (see NewKeyfuncValidator) for asymmetric keys.
	TokenValidator TokenValidator

	// SessionResolver is required; it performs the revocation check.
	SessionResolver SessionResolver

	// ContextKey is the router locals key the *auth.Actor is stored under.
	ContextKey string

	HeaderName string
	AuthScheme string

	// Optional makes an absent credential non-fatal: the request proceeds
	// with an anonymous actor. A present-but-invalid credential is still
	// rejected.
	Optional bool

	// ContextEnricher propagates the actor into the standard context. The
	// default attaches it with auth.WithActor.
	ContextEnricher func(ctx context.Context, actor *auth.Actor) context.Context
}

func (cfg Config) withDefaults() Config {
	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c router.Context) error {
			return c.Next()
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = func(ctx context.Context, actor *auth.Actor) context.Context {
			return auth.WithActor(ctx, actor)
		}
	}
	if cfg.TokenValidator == nil {
		panic("AUTH: gates configuration: TokenValidator is required.")
	}
	if cfg.SessionResolver == nil {
		panic("AUTH: gates configuration: SessionResolver is required.")
	}
	return cfg
}

// RequireAuth admits only requests carrying a valid, unrevoked session token
// and attaches the full actor to the request.
func RequireAuth(config Config) router.MiddlewareFunc {
	config.Optional = false
	return newAuthGate(config)
}

// OptionalAuth behaves like RequireAuth when a credential is present; absence
// is not an error and yields an anonymous actor.
func OptionalAuth(config Config) router.MiddlewareFunc {
	config.Optional = true
	return newAuthGate(config)
}

func newAuthGate(config Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := config.withDefaults()
		return func(c router.Context) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return c.Next()
			}

			raw, ok := tokenFromHeader(c, cfg.HeaderName, cfg.AuthScheme)
			if !ok {
				if cfg.Optional {
					return admit(c, cfg, auth.AnonymousActor())
				}
				return cfg.ErrorHandler(c, auth.ErrCredentialMissing)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			user, err := cfg.SessionResolver.ResolveSession(c.Context(), claims.UserID(), raw)
			if err != nil {
				if errors.Is(err, auth.ErrSessionNotFound) {
					// Revoked or never issued; indistinguishable from forged.
					return cfg.ErrorHandler(c, auth.ErrCredentialInvalid)
				}
				return cfg.ErrorHandler(c, err)
			}

			return admit(c, cfg, &auth.Actor{User: user})
		}
	}
}

func admit(c router.Context, cfg Config, actor *auth.Actor) error {
	c.Locals(cfg.ContextKey, actor)
	c.SetContext(cfg.ContextEnricher(c.Context(), actor))
	return cfg.SuccessHandler(c)
}

// tokenFromHeader extracts the raw token with an exact prefix match; the
// scheme comparison is case-sensitive on purpose.
func tokenFromHeader(c router.Context, header, scheme string) (string, bool) {
	value := c.GetString(header, "")
	if value == "" {
		return "", false
	}
	if !strings.HasPrefix(value, scheme) {
		return "", false
	}
	token := strings.TrimSpace(value[len(scheme):])
	if token == "" {
		return "", false
	}
	return token, true
}

// AdminConfig drives the admin gate.
type AdminConfig struct {
	// ContextKey must match the auth gate that ran before this one.
	ContextKey   string
	ErrorHandler router.ErrorHandler
}

// RequireAdmin rejects any actor that is not an authenticated administrator.
// It must run after RequireAuth.
func RequireAdmin(config ...AdminConfig) router.MiddlewareFunc {
	cfg := AdminConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			actor, ok := auth.ActorFromRouter(c, cfg.ContextKey)
			if !ok || actor.Anonymous() {
				return cfg.ErrorHandler(c, auth.ErrCredentialInvalid)
			}
			if !actor.Admin() {
				return cfg.ErrorHandler(c, auth.ErrNotAdmin)
			}
			return c.Next()
		}
	}
}

// APIKeyConfig drives the shared-secret gate for internal endpoints.
type APIKeyConfig struct {
	// Header names the request header compared against the secret.
	Header string
	// Key is the shared secret.
	Key          string
	ErrorHandler router.ErrorHandler
}

// APIKey admits requests whose configured header equals the shared secret.
// It is independent of user identity and composes with no other gate.
func APIKey(config APIKeyConfig) router.MiddlewareFunc {
	if config.Header == "" {
		config.Header = "X-Api-Key"
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = DefaultErrorHandler
	}
	if config.Key == "" {
		panic("AUTH: gates configuration: APIKey secret is required.")
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			presented := c.GetString(config.Header, "")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(config.Key)) != 1 {
				return config.ErrorHandler(c, auth.ErrAPIKeyInvalid)
			}
			return c.Next()
		}
	}
}

// DefaultErrorHandler renders the package error taxonomy as JSON with the
// status each error carries; anything unclassified is a generic 500 so
// internal detail never leaks.
func DefaultErrorHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code != 0 {
		status := richErr.Code
		if errors.Is(err, auth.ErrSessionNotFound) {
			status = errors.CodeUnauthorized
		}
		return c.JSON(status, map[string]any{
			"success": false,
			"error":   richErr.Message,
			"code":    richErr.TextCode,
		})
	}

	return c.JSON(router.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "internal error",
	})
}
