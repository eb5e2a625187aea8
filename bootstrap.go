package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// accountBootstrap creates the records a first-time identity needs: the
// directory record and its companion search profile. The two writes are not
// atomic across stores; if the second fails, the first is deleted as a
// best-effort compensation and the original failure is what the caller sees.
//
// When the compensating delete itself fails, the orphaned directory record is
// not reconciled here; it is logged as a monitored inconsistency.
type accountBootstrap struct {
	repo      RepositoryManager
	referrals *ReferralAllocator
	logger    Logger
}

func newAccountBootstrap(repo RepositoryManager, referrals *ReferralAllocator, logger Logger) *accountBootstrap {
	if logger == nil {
		logger = defLogger{}
	}
	return &accountBootstrap{
		repo:      repo,
		referrals: referrals,
		logger:    logger,
	}
}

func (b *accountBootstrap) execute(ctx context.Context, identity *ExternalIdentity) (*User, error) {
	code, err := b.referrals.Next(ctx)
	if err != nil {
		return nil, err
	}

	user, err := b.repo.Users().Create(ctx, &User{
		ExternalID:   identity.ExternalID,
		DisplayName:  identity.DisplayName,
		AvatarURL:    identity.AvatarURL,
		ReferralCode: code,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user record")
	}

	if _, err := b.repo.SearchProfiles().Create(ctx, &SearchProfile{UserID: user.ID}); err != nil {
		original := errors.Wrap(err, errors.CategoryInternal, "could not create search profile")

		if derr := b.repo.Users().HardDelete(ctx, user.ID); derr != nil {
			b.logger.Error(
				"Bootstrap compensation failed, directory record orphaned",
				"user_id", user.ID.String(),
				"external_id", identity.ExternalID,
				"compensation_error", derr,
				"original_error", err,
			)
		} else {
			b.logger.Warn(
				"Bootstrap compensated: search profile creation failed, user record deleted",
				"external_id", identity.ExternalID,
				"error", err,
			)
		}

		return nil, original
	}

	return user, nil
}
