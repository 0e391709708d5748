package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every tuesday", nil, func(context.Context) {}, quiet())
	assert.Error(t, err)
}

func TestNextWeeklyTuesday(t *testing.T) {
	s, err := New("0 9 * * TUE", time.UTC, func(context.Context) {}, quiet())
	require.NoError(t, err)

	monday := time.Date(2024, 9, 9, 12, 0, 0, 0, time.UTC)
	assert.True(t, s.Next(monday).Equal(time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)), s.Next(monday))

	tuesdayAfter := time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)
	assert.True(t, s.Next(tuesdayAfter).Equal(time.Date(2024, 9, 17, 9, 0, 0, 0, time.UTC)), s.Next(tuesdayAfter))
}

func TestStartRunsJobUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	s, err := New("@every 1s", nil, func(context.Context) {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	}, quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
