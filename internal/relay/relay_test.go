package relay

import (
	"EventRelay/internal/shared/mpsc"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func runAsync[M any](ctx context.Context, r *Relay[M]) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	return errCh
}

func waitRun(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRelay_DrainsThenStopsOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	nopLogger := zerolog.Nop()
	tx, rx := mpsc.New[int]()

	var got []int
	r := New("collector", rx, func(_ context.Context, v int) error {
		got = append(got, v)
		return nil
	}, &nopLogger)
	assert.Equal(t, "collector", r.Name())

	for i := 1; i <= 3; i++ {
		require.NoError(t, tx.Send(i))
	}
	tx.Close()

	waitRun(t, runAsync(context.Background(), r))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRelay_HandlerErrorIsNotFatal(t *testing.T) {
	nopLogger := zerolog.Nop()
	tx, rx := mpsc.New[int]()

	var got []int
	r := New("flaky", rx, func(_ context.Context, v int) error {
		if v == 2 {
			return errors.New("boom")
		}
		got = append(got, v)
		return nil
	}, &nopLogger)

	for i := 1; i <= 3; i++ {
		require.NoError(t, tx.Send(i))
	}
	tx.Close()

	waitRun(t, runAsync(context.Background(), r))
	assert.Equal(t, []int{1, 3}, got)
}

func TestRelay_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	nopLogger := zerolog.Nop()
	tx, rx := mpsc.New[int]()
	defer tx.Close()

	r := New("idle", rx, func(context.Context, int) error { return nil }, &nopLogger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, r)
	cancel()
	waitRun(t, errCh)

	// Run releases the queue on the way out.
	assert.Error(t, tx.Send(1))
}
