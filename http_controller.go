package auth

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes login, logout, and profile over JSON.
type HTTPController struct {
	auther  *Auther
	revoker *Revoker
	config  HTTPConfig
	logger  Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// SessionContextKey is the router locals key the auth gates store the
	// actor under (default: "user")
	SessionContextKey string

	// PlatformHeader names the header the client reports its platform in
	// (default: "X-Client-Platform")
	PlatformHeader string

	// Debug dumps login responses to stdout
	Debug bool

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error

	Logger Logger
}

// NewHTTPController creates the controller around the orchestrator and the
// revoker.
func NewHTTPController(auther *Auther, revoker *Revoker, cfg HTTPConfig) *HTTPController {
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = "user"
	}
	if cfg.PlatformHeader == "" {
		cfg.PlatformHeader = "X-Client-Platform"
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	return &HTTPController{
		auther:  auther,
		revoker: revoker,
		config:  cfg,
		logger:  cfg.Logger,
	}
}

// RegisterRoutes registers the auth routes. The login route is open; pass the
// required-auth gate as requireAuth so logout and me run behind it.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar, requireAuth ...router.MiddlewareFunc) {
	group.Post("/login", c.Login)
	group.Post("/logout", c.Logout, requireAuth...)
	group.Get("/me", c.Me, requireAuth...)
}

// Login verifies the provider credential in the Authorization header and
// issues a session token, creating the account on first contact.
func (c *HTTPController) Login(ctx router.Context) error {
	authorization := ctx.GetString("Authorization", "")

	opts := []LoginOption{}
	if platform := ctx.GetString(c.config.PlatformHeader, ""); platform != "" {
		opts = append(opts, WithClientPlatform(platform))
	}

	result, err := c.auther.Login(ctx.Context(), authorization, opts...)
	if err != nil {
		return c.handleError(ctx, err)
	}

	if c.config.Debug {
		fmt.Println(print.MaybePrettyJSON(result))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"token":    result.Token,
		"exp":      result.ExpiresAt.Unix(),
		"admin":    result.Admin,
		"new_user": result.IsNewUser,
		"profile":  result.Profile,
	})
}

// Logout revokes the actor's provider refresh tokens and clears every
// session row they own, signing them out of all devices.
func (c *HTTPController) Logout(ctx router.Context) error {
	actor, ok := ActorFromRouter(ctx, c.config.SessionContextKey)
	if !ok || actor.Anonymous() {
		return c.handleError(ctx, ErrCredentialMissing)
	}

	result, err := c.revoker.Logout(ctx.Context(), actor.User)
	if err != nil {
		c.logger.Warn(
			"Logout incomplete",
			"user_id", actor.User.ID,
			"provider_revoked", result.ProviderRevoked,
			"tokens_cleared", result.TokensCleared,
		)
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// Me returns the authenticated actor's profile.
func (c *HTTPController) Me(ctx router.Context) error {
	actor, ok := ActorFromRouter(ctx, c.config.SessionContextKey)
	if !ok || actor.Anonymous() {
		return c.handleError(ctx, ErrCredentialMissing)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"profile": NewProfileFromUser(actor.User),
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Code == 0 {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	c.logger.Info(
		"Request error",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if errors.Is(err, ErrSessionNotFound) {
		status = errors.CodeUnauthorized
	}

	return ctx.JSON(status, map[string]any{
		"success": false,
		"error":   richErr.Message,
		"code":    richErr.TextCode,
	})
}
