package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SearchProfiles stores the one-per-user companion document created during
// bootstrap.
type SearchProfiles interface {
	repository.Repository[*SearchProfile]

	Create(ctx context.Context, record *SearchProfile, criteria ...repository.InsertCriteria) (*SearchProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*SearchProfile, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

type searchProfiles struct {
	repository.Repository[*SearchProfile]
	db *bun.DB
}

var _ SearchProfiles = (*searchProfiles)(nil)

// NewSearchProfilesRepository wires the companion profile store over a bun DB.
func NewSearchProfilesRepository(db *bun.DB) SearchProfiles {
	repo := repository.NewRepository[*SearchProfile](db, repository.ModelHandlers[*SearchProfile]{
		NewRecord: func() *SearchProfile { return &SearchProfile{} },
		GetID: func(p *SearchProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *SearchProfile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &searchProfiles{
		Repository: repo,
		db:         db,
	}
}

func (s *searchProfiles) Create(ctx context.Context, record *SearchProfile, criteria ...repository.InsertCriteria) (*SearchProfile, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.RecentSearches == nil {
		record.RecentSearches = []string{}
	}
	return s.Repository.CreateTx(ctx, s.db, record, criteria...)
}

func (s *searchProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*SearchProfile, error) {
	record := &SearchProfile{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (s *searchProfiles) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.NewDelete().
		Model((*SearchProfile)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
