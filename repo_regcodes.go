package authbridge

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	regCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	regCodeLength   = 8

	// collisions on an 8-char code are rare but possible; bound the
	// regeneration loop instead of trusting luck
	regCodeIssueAttempts = 5
)

// RegistrationCodes persists single-use bootstrap credentials.
type RegistrationCodes struct {
	db *bun.DB
}

// NewRegistrationCodesRepository creates a new repository.
func NewRegistrationCodesRepository(db *bun.DB) *RegistrationCodes {
	return &RegistrationCodes{db: db}
}

// Resolve looks up the code and joins the pre-provisioned user it
// binds. It does NOT consume the code; redemption calls ConsumeTx
// inside the same transaction that creates the authenticated session.
func (r *RegistrationCodes) Resolve(ctx context.Context, code string) (*RegistrationCode, error) {
	record := &RegistrationCode{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRegCode
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load registration code")
	}

	if record.User == nil {
		return nil, ErrInvalidRegCode
	}

	return record, nil
}

// ConsumeTx deletes the code, enforcing single use. Zero rows affected
// means another redemption won the race and the caller must fail.
func (r *RegistrationCodes) ConsumeTx(ctx context.Context, tx bun.IDB, code string) error {
	res, err := tx.NewDelete().
		Model((*RegistrationCode)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to consume registration code")
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrInvalidRegCode
	}

	return nil
}

// IssueFor mints a code for the user. A caller-supplied code is used
// verbatim; otherwise an 8-character uppercase alphanumeric code is
// generated, retrying a bounded number of times on collision.
func (r *RegistrationCodes) IssueFor(ctx context.Context, userID uuid.UUID, explicit ...string) (string, error) {
	if len(explicit) > 0 && explicit[0] != "" {
		if err := r.insert(ctx, explicit[0], userID); err != nil {
			return "", err
		}
		return explicit[0], nil
	}

	var lastErr error
	for attempt := 0; attempt < regCodeIssueAttempts; attempt++ {
		code, err := generateRegCode()
		if err != nil {
			return "", err
		}

		if err := r.insert(ctx, code, userID); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return "", err
		}

		return code, nil
	}

	return "", errors.Wrap(lastErr, errors.CategoryInternal, "failed to issue registration code after retries")
}

func (r *RegistrationCodes) insert(ctx context.Context, code string, userID uuid.UUID) error {
	now := time.Now()
	record := &RegistrationCode{
		Code:      code,
		UserID:    userID,
		CreatedAt: &now,
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to store registration code")
	}

	return nil
}

func generateRegCode() (string, error) {
	var sb strings.Builder
	sb.Grow(regCodeLength)

	max := big.NewInt(int64(len(regCodeAlphabet)))
	for i := 0; i < regCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate registration code")
		}
		sb.WriteByte(regCodeAlphabet[n.Int64()])
	}

	return sb.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
