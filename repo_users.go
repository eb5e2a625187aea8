package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user directory. One record per external identity; records are
// created by the bootstrap path and deleted only as its compensation.
type Users interface {
	repository.Repository[*User]

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)

	// RefreshByExternalID updates display name and avatar for the record
	// matching externalID in a single conditional UPDATE, returning the
	// refreshed row. Absence is reported as a record-not-found error, never
	// by creating a record.
	RefreshByExternalID(ctx context.Context, identity *ExternalIdentity) (*User, error)

	// Latest returns the most recently created record; the referral
	// allocator derives the next code from it.
	Latest(ctx context.Context) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	// HardDelete removes a record outright. Only the bootstrap compensation
	// path uses it.
	HardDelete(ctx context.Context, id uuid.UUID) error

	// MarkMobileLogin flips mobile_login once; subsequent calls are no-ops.
	MarkMobileLogin(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository wires the user directory over a bun DB.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "external_id"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", strings.TrimSpace(externalID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"external_id": externalID})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) RefreshByExternalID(ctx context.Context, identity *ExternalIdentity) (*User, error) {
	record := &User{}
	res, err := a.db.NewUpdate().
		Model(record).
		Set("display_name = ?", identity.DisplayName).
		Set("avatar_url = ?", identity.AvatarURL).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.external_id = ?", identity.ExternalID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"external_id": identity.ExternalID})
	}

	return record, nil
}

func (a *users) Latest(ctx context.Context) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) HardDelete(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) MarkMobileLogin(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("mobile_login = ?", true).
		Where("id = ?", id).
		Where("mobile_login = ?", false).
		Exec(ctx)
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.ExternalID); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
}
