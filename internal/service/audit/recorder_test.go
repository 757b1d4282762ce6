package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
	ctxErr error
}

func (m *memorySink) RecordEvent(ctx context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestRecorder_SurvivesCancelledRequest(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder(sink, time.Second, nil)
	fixed := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, rec.RecordEvent(ctx, audit.Event{Action: audit.ActionApprove, EntityID: "e-1"}))
	rec.Wait()

	require.Len(t, sink.events, 1)
	assert.Equal(t, fixed, sink.events[0].CreatedAt)
	assert.NoError(t, sink.ctxErr)
}

func TestRecorder_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	sink := &memorySink{err: errors.New("disk full")}
	rec := NewRecorder(sink, time.Second, slog.New(slog.NewTextHandler(&buf, nil)))

	err := rec.RecordEvent(context.Background(), audit.Event{Action: audit.ActionReject, EntityID: "e-2"})
	require.NoError(t, err)
	rec.Wait()

	assert.Contains(t, buf.String(), "failed to record audit event")
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "e-2")
}
