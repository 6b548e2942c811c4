package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLocks_AcquireRelease(t *testing.T) {
	locks := newRunLocks()

	err := locks.acquire(context.Background(), "doc:a", false)
	require.NoError(t, err)

	// Different id is independent
	err = locks.acquire(context.Background(), "doc:b", false)
	require.NoError(t, err)

	locks.release("doc:a")
	locks.release("doc:b")

	// Reacquire after release
	err = locks.acquire(context.Background(), "doc:a", false)
	require.NoError(t, err)
	locks.release("doc:a")
}

func TestRunLocks_BusyFailsFast(t *testing.T) {
	locks := newRunLocks()
	require.NoError(t, locks.acquire(context.Background(), "doc:a", false))
	defer locks.release("doc:a")

	err := locks.acquire(context.Background(), "doc:a", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunLocks_WaitForHolder(t *testing.T) {
	locks := newRunLocks()
	require.NoError(t, locks.acquire(context.Background(), "doc:a", false))

	acquired := make(chan struct{})
	go func() {
		if err := locks.acquire(context.Background(), "doc:a", true); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	locks.release("doc:a")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock after release")
	}
	locks.release("doc:a")
}

func TestRunLocks_WaitRespectsContext(t *testing.T) {
	locks := newRunLocks()
	require.NoError(t, locks.acquire(context.Background(), "doc:a", false))
	defer locks.release("doc:a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := locks.acquire(ctx, "doc:a", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunLocks_ExactlyOneWinner(t *testing.T) {
	locks := newRunLocks()
	const id = core.ID("doc:contested")

	var wg sync.WaitGroup
	var mu sync.Mutex
	holders := 0
	maxHolders := 0

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := locks.acquire(context.Background(), id, true); err != nil {
				return
			}
			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			locks.release(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxHolders, "lock must admit exactly one holder at a time")
}
