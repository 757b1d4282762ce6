package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
)

// Recorder writes audit events in the background so a slow or failing sink
// never fails the transition that produced the event. Failures are logged.
type Recorder struct {
	sink    audit.Sink
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

var _ audit.Sink = (*Recorder)(nil)

func NewRecorder(sink audit.Sink, timeout time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, timeout: timeout, logger: logger, now: time.Now}
}

// RecordEvent implements audit.Sink. It always returns nil.
func (r *Recorder) RecordEvent(ctx context.Context, event audit.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.sink.RecordEvent(ctx, event); err != nil {
			r.logger.Error("failed to record audit event",
				"action", event.Action,
				"entity_type", event.EntityType,
				"entity_id", event.EntityID,
				"error", err,
			)
		}
	}()
	return nil
}

// Wait blocks until every dispatched event has been written or dropped.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
