package auth

import (
	"github.com/goliatone/go-errors"
)

// Machine-readable reason codes surfaced to clients alongside the HTTP status.
const (
	TextCodeCredentialMissing = "credential_missing"
	TextCodeCredentialInvalid = "credential_invalid"
	TextCodeCredentialExpired = "credential_expired"
	TextCodeCredentialRevoked = "credential_revoked"
	TextCodeProviderFailure   = "identity_provider_failure"
	TextCodeNotAdmin          = "not_admin"
	TextCodeAPIKeyInvalid     = "api_key_invalid"
	TextCodeSessionNotFound   = "session_not_found"
)

// ErrCredentialMissing is returned when the Authorization header is absent or
// does not carry the expected scheme.
var ErrCredentialMissing = errors.New("missing credential", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialMissing).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialInvalid is returned when a credential fails signature or
// format checks, or when a session token has no live store row.
var ErrCredentialInvalid = errors.New("invalid credential", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialExpired is returned when a credential is past its embedded
// expiry.
var ErrCredentialExpired = errors.New("expired credential", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialExpired).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialRevoked is returned when the identity provider reports the
// credential's underlying session as revoked.
var ErrCredentialRevoked = errors.New("revoked credential", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrProviderUnavailable covers every identity provider failure that is not a
// verdict about the credential itself. It is infrastructure, not auth.
var ErrProviderUnavailable = errors.New("identity provider failure", errors.CategoryInternal).
	WithTextCode(TextCodeProviderFailure).
	WithCode(errors.CodeInternal)

// ErrNotAdmin is returned by the admin gate for valid non-admin sessions.
var ErrNotAdmin = errors.New("admin privileges required", errors.CategoryAuthz).
	WithTextCode(TextCodeNotAdmin).
	WithCode(errors.CodeForbidden)

// ErrAPIKeyInvalid is returned by the API key gate on header mismatch.
var ErrAPIKeyInvalid = errors.New("invalid api key", errors.CategoryAuth).
	WithTextCode(TextCodeAPIKeyInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrSessionNotFound is returned when a token store row cannot be located for
// an otherwise valid token. Callers translate it to ErrCredentialInvalid at
// the edge so revoked and forged tokens are indistinguishable to clients.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeNotFound)

// IsCredentialError reports whether err is one of the client-facing
// credential verdicts (missing, invalid, expired, revoked).
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialMissing) ||
		errors.Is(err, ErrCredentialInvalid) ||
		errors.Is(err, ErrCredentialExpired) ||
		errors.Is(err, ErrCredentialRevoked)
}

// CredentialStatus returns the machine-readable reason code carried by a
// credential verdict, or an empty string for any other error.
func CredentialStatus(err error) string {
	if !IsCredentialError(err) {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// wrapPersistence hides storage detail from callers while keeping it in the
// error chain for server-side logs.
func wrapPersistence(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
