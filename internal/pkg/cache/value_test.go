package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	version int
}

func TestValue_LoadsOnceAndCaches(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	var calls int32
	load := func(ctx context.Context) (*snapshot, error) {
		n := atomic.AddInt32(&calls, 1)
		return &snapshot{version: int(n)}, nil
	}

	first, err := v.Get(context.Background(), load)
	require.NoError(t, err)
	second, err := v.Get(context.Background(), load)
	require.NoError(t, err)

	assert.Equal(t, 1, first.version)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestValue_ConcurrentMissesShareLoad(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (*snapshot, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &snapshot{version: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]*snapshot, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := v.Get(context.Background(), load)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	// Give goroutines time to pile onto the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 7, r.version)
	}
}

func TestValue_InvalidateForcesReload(t *testing.T) {
	v := NewValue[snapshot](0)
	version := 1
	load := func(ctx context.Context) (*snapshot, error) {
		return &snapshot{version: version}, nil
	}

	s, err := v.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, s.version)

	version = 2
	s, err = v.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, s.version, "ttl 0 keeps the value until invalidated")

	v.Invalidate()
	s, err = v.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 2, s.version)
}

func TestValue_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	v := NewValue[snapshot](time.Minute)
	v.now = func() time.Time { return now }

	var calls int
	load := func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{version: calls}, nil
	}

	_, err := v.Get(context.Background(), load)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = v.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(31 * time.Second)
	s, err := v.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 2, s.version)
}

func TestValue_LoadErrorIsNotCached(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	boom := errors.New("store unavailable")

	_, err := v.Get(context.Background(), func(ctx context.Context) (*snapshot, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	s, err := v.Get(context.Background(), func(ctx context.Context) (*snapshot, error) {
		return &snapshot{version: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.version)
}

func TestValue_SetReplacesValue(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	v.Set(&snapshot{version: 9})

	s, err := v.Get(context.Background(), func(ctx context.Context) (*snapshot, error) {
		t.Fatal("load must not be called after Set")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, s.version)
}

func TestValue_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (*snapshot, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &snapshot{version: 3}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := v.Get(ctx, load)
		firstErr <- err
	}()
	<-started

	second := make(chan *snapshot, 1)
	go func() {
		s, err := v.Get(context.Background(), load)
		assert.NoError(t, err)
		second <- s
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case s := <-second:
		require.NotNil(t, s)
		assert.Equal(t, 3, s.version)
	case <-time.After(time.Second):
		t.Fatal("second caller never got the value")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestValue_LoadTimeoutBoundsDetachedLoad(t *testing.T) {
	v := NewValue[snapshot](time.Minute)
	v.loadTimeout = 20 * time.Millisecond
	load := func(ctx context.Context) (*snapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := v.Get(context.Background(), load)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
