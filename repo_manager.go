package authbridge

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Sessions() *Sessions
	PendingRedirects() *PendingRedirects
	RegistrationCodes() *RegistrationCodes
}

type mngr struct {
	db       *bun.DB
	users    Users
	sessions *Sessions
	pending  *PendingRedirects
	regCodes *RegistrationCodes
}

// NewRepositoryManager wires every repository over the shared DB.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		sessions: NewSessionsRepository(db),
		pending:  NewPendingRedirectsRepository(db),
		regCodes: NewRegistrationCodesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.pending == nil {
		return errors.New("repository pendingRedirects should be initialized")
	}

	if m.regCodes == nil {
		return errors.New("repository registrationCodes should be initialized")
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

func (m mngr) Sessions() *Sessions {
	return m.sessions
}

func (m mngr) PendingRedirects() *PendingRedirects {
	return m.pending
}

func (m mngr) RegistrationCodes() *RegistrationCodes {
	return m.regCodes
}
