// Package firebase adapts the Firebase Admin SDK to the auth.IdentityProvider
// contract: credential verification with revocation checks, and refresh token
// revocation on logout.
package firebase

import (
	"context"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/goliatone/go-errors"
	auth "github.com/urvue/go-auth"
	"google.golang.org/api/option"
)

// TokenVerifier captures the Firebase auth client methods the provider uses.
// *fbauth.Client satisfies it; tests swap in a fake.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Provider verifies Firebase ID tokens and maps them onto external
// identities.
type Provider struct {
	client TokenVerifier
	logger auth.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger replaces the default logger.
func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a Provider from a Firebase app initialized with the given
// service account credentials file. Pass an empty path to use application
// default credentials.
func New(ctx context.Context, credentialsFile string, opts ...Option) (*Provider, error) {
	var appOpts []option.ClientOption
	if credentialsFile != "" {
		appOpts = append(appOpts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, appOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize identity provider app").
			WithTextCode(auth.TextCodeProviderFailure)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize identity provider client").
			WithTextCode(auth.TextCodeProviderFailure)
	}

	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an already constructed Firebase auth client.
func NewWithClient(client TokenVerifier, opts ...Option) *Provider {
	p := &Provider{
		client: client,
		logger: auth.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// VerifyCredential validates the ID token with Firebase and returns the
// identity it asserts. With checkRevoked set, a token minted before the
// user's last RevokeRefreshTokens call is rejected.
func (p *Provider) VerifyCredential(ctx context.Context, credential string, checkRevoked bool) (*auth.ExternalIdentity, error) {
	var token *fbauth.Token
	var err error

	if checkRevoked {
		token, err = p.client.VerifyIDTokenAndCheckRevoked(ctx, credential)
	} else {
		token, err = p.client.VerifyIDToken(ctx, credential)
	}

	if err != nil {
		return nil, p.mapVerifyError(err)
	}

	identity := &auth.ExternalIdentity{
		ExternalID:  token.UID,
		DisplayName: claimString(token.Claims, "name"),
		AvatarURL:   claimString(token.Claims, "picture"),
	}

	return identity, nil
}

// RevokeRefreshTokens invalidates every refresh token the provider holds for
// the user, so no new ID tokens can be minted without re-authenticating.
func (p *Provider) RevokeRefreshTokens(ctx context.Context, externalID string) error {
	if err := p.client.RevokeRefreshTokens(ctx, externalID); err != nil {
		p.logger.Error("Provider refresh token revocation failed", "external_id", externalID, "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "identity provider revocation failed").
			WithTextCode(auth.TextCodeProviderFailure).
			WithMetadata(map[string]any{"external_id": externalID})
	}
	return nil
}

func (p *Provider) mapVerifyError(err error) error {
	switch {
	case fbauth.IsIDTokenExpired(err):
		return auth.ErrCredentialExpired
	case fbauth.IsIDTokenRevoked(err):
		return auth.ErrCredentialRevoked
	case fbauth.IsIDTokenInvalid(err):
		return auth.ErrCredentialInvalid
	}

	p.logger.Error("Provider verification failed", "error", err)
	return errors.Wrap(err, errors.CategoryInternal, "identity provider unavailable").
		WithTextCode(auth.TextCodeProviderFailure)
}

func claimString(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
