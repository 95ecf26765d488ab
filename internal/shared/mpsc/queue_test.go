package mpsc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, tx.Send(i))
	}
	assert.Equal(t, 5, rx.Len())

	for want := 0; want < 5; want++ {
		got, err := rx.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_SendAfterReceiverClosed(t *testing.T) {
	tx, rx := New[string]()
	clone := tx.Clone()
	rx.Close()

	for _, s := range []*Sender[string]{tx, clone} {
		err := s.Send("lost")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrClosed)

		var sendErr *SendError[string]
		require.True(t, errors.As(err, &sendErr))
		assert.Equal(t, "lost", sendErr.Value)
	}

	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_SendOnClosedHandle(t *testing.T) {
	tx, rx := New[int]()
	other := tx.Clone()
	tx.Close()
	tx.Close() // idempotent

	err := tx.Send(1)
	assert.ErrorIs(t, err, ErrClosed)

	// The other handle and the queue are unaffected.
	require.NoError(t, other.Send(2))
	v, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestQueue_DisconnectedAfterLastSender(t *testing.T) {
	tx, rx := New[int]()
	clone := tx.Clone()

	require.NoError(t, clone.Send(7))
	tx.Close()
	clone.Close()

	// Queued values are still delivered before disconnection is reported.
	v, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = rx.TryRecv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestQueue_RecvBlocksUntilSend(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	done := make(chan int, 1)
	go func() {
		v, err := rx.Recv(context.Background())
		if err != nil {
			t.Errorf("Recv failed: %v", err)
		}
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Recv returned before anything was sent")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, tx.Send(42))

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for Recv")
	}
}

func TestQueue_RecvWakesOnDisconnect(t *testing.T) {
	tx, rx := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, err := rx.Recv(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tx.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrDisconnected)
	case <-time.After(time.Second):
		t.Fatal("Recv did not observe disconnection")
	}
}

func TestQueue_RecvHonoursContext(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const producers = 8
	const perProducer = 500

	type item struct{ producer, seq int }
	tx, rx := New[item]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		handle := tx.Clone()
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			defer handle.Close()
			for i := 0; i < perProducer; i++ {
				if err := handle.Send(item{p, i}); err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
			}
		}(p)
	}
	tx.Close()

	next := make([]int, producers)
	total := 0
	for {
		it, err := rx.Recv(context.Background())
		if errors.Is(err, ErrDisconnected) {
			break
		}
		require.NoError(t, err)
		require.Equal(t, next[it.producer], it.seq, "producer %d out of order", it.producer)
		next[it.producer]++
		total++
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, total)
}
