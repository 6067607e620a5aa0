package authbridge

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a pre-provisioned account. Rows are created bare by the
// register endpoint; IsInitialized flips on the first successful
// account setup.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	DisplayName   *string    `bun:"display_name" json:"display_name"`
	IsInitialized bool       `bun:"is_initialized,notnull,default:false" json:"is_initialized"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Session binds a browser cookie to an optional user. Rows are
// immutable: upgrading an anonymous session creates a new row and
// abandons the old one.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID        *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsAnonymous reports whether the session has no bound user.
func (s *Session) IsAnonymous() bool {
	return s.UserID == nil
}

// RegistrationCode is a single-use bootstrap credential binding a
// pre-provisioned user to a visitor. Redemption deletes the row in the
// same transaction that creates the authenticated session.
type RegistrationCode struct {
	bun.BaseModel `bun:"table:registration_codes,alias:reg"`
	Code          string     `bun:"code,pk" json:"code"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PendingRedirect is one in-flight authentication intent, keyed by
// session and consumed at most once.
type PendingRedirect struct {
	bun.BaseModel `bun:"table:pending_redirects,alias:pre"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	SessionID     uuid.UUID `bun:"session_id,notnull,type:uuid" json:"session_id"`
	RedirectURL   string    `bun:"redirect_url,notnull" json:"redirect_url"`
	PostbackURL   *string   `bun:"postback_url" json:"postback_url,omitempty"`
	State         *string   `bun:"state" json:"state,omitempty"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired reports whether the intent is past its TTL at the given time.
func (p *PendingRedirect) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}

// EventLog is an audit row written fire-and-forget; failures here must
// never affect authentication outcomes.
type EventLog struct {
	bun.BaseModel `bun:"table:event_logs,alias:evl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Kind          string     `bun:"kind,notnull" json:"kind"`
	SessionID     *uuid.UUID `bun:"session_id,type:uuid" json:"session_id,omitempty"`
	Detail        string     `bun:"detail" json:"detail,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
