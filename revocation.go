package auth

import (
	"context"
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

// RevocationResult reports each half of the logout protocol separately.
// Provider revocation cannot be undone, so a partial failure leaves the two
// systems out of step; callers use the flags to detect and alert on it.
type RevocationResult struct {
	ProviderRevoked bool
	TokensCleared   bool
	// TokensDeleted is the number of local session rows removed.
	TokensDeleted int64
}

// Revoker is the logout coordinator: it revokes the identity subject's
// provider-side refresh credentials and deletes every local session token the
// user owns. There is no rollback between the two steps.
type Revoker struct {
	provider IdentityProvider
	store    TokenStore
	logger   Logger
}

// NewRevoker creates a logout coordinator.
func NewRevoker(provider IdentityProvider, store TokenStore) *Revoker {
	return &Revoker{
		provider: provider,
		store:    store,
		logger:   defLogger{},
	}
}

func (r *Revoker) WithLogger(logger Logger) *Revoker {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Logout runs both revocation steps for the user. The local delete is
// attempted even when the provider call fails; deleting local sessions is
// always safe. Overall success requires both.
func (r *Revoker) Logout(ctx context.Context, user *User) (RevocationResult, error) {
	result := RevocationResult{}

	providerErr := r.provider.RevokeRefreshTokens(ctx, user.ExternalID)
	if providerErr != nil {
		r.logger.Error("Provider revocation failed", "external_id", user.ExternalID, "error", providerErr)
	} else {
		result.ProviderRevoked = true
	}

	deleted, deleteErr := r.store.DeleteAllForUser(ctx, user.ID)
	if deleteErr != nil {
		r.logger.Error("Local session purge failed", "user_id", user.ID.String(), "error", deleteErr)
	} else {
		result.TokensCleared = true
		result.TokensDeleted = deleted
	}

	if providerErr != nil || deleteErr != nil {
		return result, errors.Wrap(
			stderrors.Join(providerErr, deleteErr),
			errors.CategoryInternal,
			"logout incomplete",
		).WithMetadata(map[string]any{
			"provider_revoked": result.ProviderRevoked,
			"tokens_cleared":   result.TokensCleared,
		})
	}

	return result, nil
}
