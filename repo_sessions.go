package authbridge

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions persists auth sessions. Rows are never updated: an upgrade
// from anonymous to authenticated inserts a fresh row and leaves the
// old one inert.
type Sessions struct {
	db *bun.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *bun.DB) *Sessions {
	return &Sessions{db: db}
}

// CreateAnonymous inserts a session with no bound user.
func (r *Sessions) CreateAnonymous(ctx context.Context) (*Session, error) {
	return r.createTx(ctx, r.db, nil)
}

// CreateAuthenticated inserts a session bound to userID.
func (r *Sessions) CreateAuthenticated(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return r.createTx(ctx, r.db, &userID)
}

// CreateAuthenticatedTx is CreateAuthenticated inside an existing
// transaction, used by registration-code redemption.
func (r *Sessions) CreateAuthenticatedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Session, error) {
	return r.createTx(ctx, tx, &userID)
}

func (r *Sessions) createTx(ctx context.Context, tx bun.IDB, userID *uuid.UUID) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: &now,
	}

	if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session")
	}

	return session, nil
}

// Get loads a session by id.
func (r *Sessions) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	session := &Session{}
	err := r.db.NewSelect().
		Model(session).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}

	return session, nil
}

// IsAnonymous reports whether the session exists and has no bound user.
func (r *Sessions) IsAnonymous(ctx context.Context, id uuid.UUID) (bool, error) {
	session, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return session.IsAnonymous(), nil
}

// ResolveUser returns the user bound to the session. An anonymous
// session resolves to ErrSessionNotFound's sibling failure rather than
// a nil user, so claim construction can never silently omit uid.
func (r *Sessions) ResolveUser(ctx context.Context, id uuid.UUID) (*User, error) {
	session := &Session{}
	err := r.db.NewSelect().
		Model(session).
		Relation("User").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}

	if session.UserID == nil || session.User == nil {
		return nil, errors.New("session has no bound user", errors.CategoryNotFound).
			WithMetadata(map[string]any{"session_id": id.String()})
	}

	return session.User, nil
}
