package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ReferralAllocator derives the next human-readable referral code from the
// most recently created directory record.
//
// The allocation is a read followed by a compute with no isolation between
// them: two concurrent first-time signups can observe the same latest record
// and derive the same code. The unique constraint on referral_code makes the
// loser fail its insert rather than produce a duplicate.
type ReferralAllocator struct {
	users  Users
	logger Logger
}

// NewReferralAllocator creates an allocator over the user directory.
func NewReferralAllocator(users Users) *ReferralAllocator {
	return &ReferralAllocator{
		users:  users,
		logger: defLogger{},
	}
}

func (r *ReferralAllocator) WithLogger(logger Logger) *ReferralAllocator {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Next returns the next code in the sequence, "UR1" for an empty directory.
func (r *ReferralAllocator) Next(ctx context.Context) (string, error) {
	latest, err := r.users.Latest(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return fmt.Sprintf("%s%d", ReferralCodePrefix, 1), nil
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read latest directory record")
	}

	suffix, err := latest.ReferralSuffix()
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "latest directory record carries a malformed referral code")
	}

	return fmt.Sprintf("%s%d", ReferralCodePrefix, suffix+1), nil
}
