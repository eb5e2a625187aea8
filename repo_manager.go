package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	SessionTokens() SessionTokens
	SearchProfiles() SearchProfiles
}

type mngr struct {
	db             *bun.DB
	users          Users
	sessionTokens  SessionTokens
	searchProfiles SearchProfiles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		sessionTokens:  NewSessionTokensRepository(db),
		searchProfiles: NewSearchProfilesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessionTokens == nil {
		return errors.New("repository sessionTokens should be initialized")
	}

	if m.searchProfiles == nil {
		return errors.New("repository searchProfiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) SessionTokens() SessionTokens {
	return m.sessionTokens
}

func (m mngr) SearchProfiles() SearchProfiles {
	return m.searchProfiles
}
