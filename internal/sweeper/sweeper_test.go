package sweeper

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (t *countingTarget) SweepExpired(context.Context) (int64, error) {
	t.calls.Add(1)
	return t.n, t.err
}

func TestRunOnce(t *testing.T) {
	var buf bytes.Buffer
	target := &countingTarget{n: 3}
	s := New(target, "*/10 * * * *", zerolog.New(&buf))

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), target.calls.Load())
	assert.Contains(t, buf.String(), `"cleared":3`)
	assert.Contains(t, buf.String(), "expired secrets swept")
}

func TestRunOnce_Error(t *testing.T) {
	var buf bytes.Buffer
	target := &countingTarget{err: errors.New("connection refused")}
	s := New(target, "*/10 * * * *", zerolog.New(&buf))

	s.RunOnce(context.Background())

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "connection refused")
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(&countingTarget{}, "every ten minutes", zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every ten minutes")
}

func TestStart_RejectsSecondsField(t *testing.T) {
	s := New(&countingTarget{}, "0 */10 * * * *", zerolog.Nop())

	require.Error(t, s.Start(context.Background()))
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := New(&countingTarget{}, "*/10 * * * *", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
