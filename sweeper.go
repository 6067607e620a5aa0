package authbridge

import (
	"context"
	"time"
)

// Sweeper removes expired pending redirects. It runs on a timer
// outside the request path; overlapping runs are harmless because
// deleting an already-deleted row is a no-op.
type Sweeper struct {
	pending *PendingRedirects
	events  *EventRecorder
	logger  Logger
}

// NewSweeper creates a sweeper over the pending-redirects store.
func NewSweeper(pending *PendingRedirects, events *EventRecorder, logger Logger) *Sweeper {
	if logger == nil {
		logger = defLogger{}
	}
	return &Sweeper{
		pending: pending,
		events:  events,
		logger:  logger,
	}
}

// Sweep deletes every expired row and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	deleted, err := s.pending.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("pending redirect sweep failed: %v", err)
		return 0, err
	}

	if deleted > 0 {
		metricSweptRedirects.Add(float64(deleted))
		s.logger.Info("swept %d expired pending redirects", deleted)
	}

	s.events.Record(EventSweep, nil, "")
	return deleted, nil
}

// Start runs Sweep on a fixed interval until ctx is cancelled. Failures
// are logged and the loop keeps going; the next tick retries.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.Sweep(ctx)
			}
		}
	}()
}
