package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

// LoginAuthScheme is the exact, case-sensitive prefix the login endpoint
// requires on the Authorization header. Authenticated endpoints use the
// lowercase scheme instead (see middleware/gates); the two contracts are
// distinct and deliberately not interchangeable.
const LoginAuthScheme = "Bearer "

// CredentialVerifier wraps the external identity provider and normalizes its
// failures into the package error taxonomy.
type CredentialVerifier struct {
	provider IdentityProvider
	logger   Logger
}

// NewCredentialVerifier creates a verifier over the given provider.
func NewCredentialVerifier(provider IdentityProvider) *CredentialVerifier {
	return &CredentialVerifier{
		provider: provider,
		logger:   defLogger{},
	}
}

func (v *CredentialVerifier) WithLogger(logger Logger) *CredentialVerifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// ExtractLoginCredential pulls the raw provider credential from an
// Authorization header value. The scheme check is an exact prefix match.
func ExtractLoginCredential(authorization string) (string, error) {
	if !strings.HasPrefix(authorization, LoginAuthScheme) {
		return "", ErrCredentialMissing
	}
	credential := authorization[len(LoginAuthScheme):]
	if strings.TrimSpace(credential) == "" {
		return "", ErrCredentialMissing
	}
	return credential, nil
}

// VerifyHeader extracts the credential from the Authorization header and
// verifies it with revocation checking enabled.
func (v *CredentialVerifier) VerifyHeader(ctx context.Context, authorization string) (*ExternalIdentity, error) {
	credential, err := ExtractLoginCredential(authorization)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, credential)
}

// Verify asks the provider for a verdict on the raw credential. Credential
// verdicts pass through unchanged; anything else the provider failed to
// normalize is treated as infrastructure failure.
func (v *CredentialVerifier) Verify(ctx context.Context, credential string) (*ExternalIdentity, error) {
	identity, err := v.provider.VerifyCredential(ctx, credential, true)
	if err != nil {
		if IsCredentialError(err) {
			return nil, err
		}
		if errors.Is(err, ErrProviderUnavailable) {
			v.logger.Error("Identity provider failure during verification", "error", err)
			return nil, err
		}
		v.logger.Error("Identity provider returned an unclassified error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if identity == nil || identity.ExternalID == "" {
		v.logger.Error("Identity provider returned an empty identity")
		return nil, ErrProviderUnavailable
	}

	return identity, nil
}
