package authbridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Event kinds recorded along the flow.
const (
	EventAuthenticate = "authenticate"
	EventInitialize   = "initialize"
	EventRedirect     = "redirect"
	EventSweep        = "sweep"
)

// EventRecorder writes audit rows fire-and-forget. A failed write is
// logged and dropped; it must never change an authentication outcome.
type EventRecorder struct {
	db     *bun.DB
	logger Logger
}

// NewEventRecorder creates the audit sink.
func NewEventRecorder(db *bun.DB, logger Logger) *EventRecorder {
	if logger == nil {
		logger = defLogger{}
	}
	return &EventRecorder{db: db, logger: logger}
}

// Record persists the event in the background, detached from the
// request's context so a finished request cannot cancel the write.
func (r *EventRecorder) Record(kind string, sessionID *uuid.UUID, detail string) {
	if r == nil || r.db == nil {
		return
	}

	row := &EventLog{
		ID:        uuid.New(),
		Kind:      kind,
		SessionID: sessionID,
		Detail:    detail,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
			r.logger.Warn("event log write failed: %v", err)
		}
	}()
}
