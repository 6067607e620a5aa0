package authbridge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEventRecorderPersists(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewEventRecorder(db, nil)

	sessionID := uuid.New()
	recorder.Record(EventAuthenticate, &sessionID, "pending redirect created")

	assert.Eventually(t, func() bool {
		count, err := db.NewSelect().
			Model((*EventLog)(nil)).
			Where("kind = ?", EventAuthenticate).
			Count(context.Background())
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventRecorderNilSafe(t *testing.T) {
	// a recorder with no sink must be a silent no-op
	recorder := NewEventRecorder(nil, nil)
	recorder.Record(EventSweep, nil, "")

	var nilRecorder *EventRecorder
	nilRecorder.Record(EventSweep, nil, "")
}
