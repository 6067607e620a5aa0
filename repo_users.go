package authbridge

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users exposes account persistence.
type Users interface {
	repository.Repository[*User]

	Provision(ctx context.Context) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName *string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the accounts repository.
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
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// Provision creates a bare, uninitialized account. Everything else
// about the user is filled in later, after a registration code binds a
// visitor to the row.
func (a *users) Provision(ctx context.Context) (*User, error) {
	record := &User{ID: uuid.New()}
	return a.Repository.Create(ctx, record)
}

// GetUser loads an account by id.
func (a *users) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

// UpdateProfile sets the display name and flips is_initialized on the
// first successful setup. Session "upgrades" never touch the user row,
// so this is the only user mutation in the flow.
func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, displayName *string) (*User, error) {
	now := time.Now()
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("display_name = ?", displayName).
		Set("is_initialized = ?", true).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user profile")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.GetUser(ctx, id)
}
