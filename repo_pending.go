package authbridge

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultPendingRedirectTTL bounds how long an authentication intent
// stays resumable.
const DefaultPendingRedirectTTL = 10 * time.Minute

// PendingRedirects persists in-flight authentication intents. Write-side
// cleanup (SweepExpired) and read-side expiry filtering (HasPending) are
// deliberately decoupled: an expired-but-unswept row is invisible to
// reads but still occupies storage until the sweep runs.
type PendingRedirects struct {
	db *bun.DB
}

// NewPendingRedirectsRepository creates a new repository.
func NewPendingRedirectsRepository(db *bun.DB) *PendingRedirects {
	return &PendingRedirects{db: db}
}

// Create records a new intent for the session. A non-positive ttl falls
// back to DefaultPendingRedirectTTL. Multiple rows per session are
// legal; Latest resolves which one wins.
func (r *PendingRedirects) Create(ctx context.Context, sessionID uuid.UUID, redirectURL string, postbackURL, state *string, ttl time.Duration) (*PendingRedirect, error) {
	if ttl <= 0 {
		ttl = DefaultPendingRedirectTTL
	}

	now := time.Now()
	pending := &PendingRedirect{
		ID:          uuid.New(),
		SessionID:   sessionID,
		RedirectURL: redirectURL,
		PostbackURL: postbackURL,
		State:       state,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	if _, err := r.db.NewInsert().Model(pending).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create pending redirect")
	}

	return pending, nil
}

// Latest returns the most recently created row for the session,
// expired or not; the caller decides what expiry means for its path.
// Ties on created_at break on id so the pick stays deterministic.
func (r *PendingRedirects) Latest(ctx context.Context, sessionID uuid.UUID) (*PendingRedirect, error) {
	pending := &PendingRedirect{}
	err := r.db.NewSelect().
		Model(pending).
		Where("?TableAlias.session_id = ?", sessionID).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPendingRedirectNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load pending redirect")
	}

	return pending, nil
}

// HasPending reports whether the session has an unexpired intent.
func (r *PendingRedirects) HasPending(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*PendingRedirect)(nil)).
		Where("?TableAlias.session_id = ?", sessionID).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Count(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to count pending redirects")
	}

	return count > 0, nil
}

// Reattach moves an intent captured from an abandoned anonymous session
// onto the freshly created authenticated session.
func (r *PendingRedirects) ReattachTx(ctx context.Context, tx bun.IDB, id, newSessionID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*PendingRedirect)(nil)).
		Set("session_id = ?", newSessionID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to reattach pending redirect")
	}

	return nil
}

// Delete removes the intent. Deleting an already-deleted row is a
// no-op, which keeps resumption and overlapping sweeps idempotent.
func (r *PendingRedirects) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*PendingRedirect)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete pending redirect")
	}

	return nil
}

// SweepExpired deletes every row past its TTL and returns how many
// went. Safe under overlapping runs.
func (r *PendingRedirects) SweepExpired(ctx context.Context) (int, error) {
	res, err := r.db.NewDelete().
		Model((*PendingRedirect)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to sweep pending redirects")
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(deleted), nil
}
