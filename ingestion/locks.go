package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/docit/core"
)

// runLocks serializes ingestion runs per document id. A second run
// arriving while one is in flight either waits for the holder to
// finish or fails fast with ErrBusy, depending on the pipeline's
// configuration. Silent duplicate execution is never possible: acquire
// succeeds for exactly one caller at a time per id.
type runLocks struct {
	mu       sync.Mutex
	inflight map[core.ID]chan struct{}
}

func newRunLocks() *runLocks {
	return &runLocks{inflight: make(map[core.ID]chan struct{})}
}

// acquire claims the lock for id. With wait set it blocks until the
// holder releases (or ctx is done); without it, a held lock returns
// ErrBusy immediately.
func (l *runLocks) acquire(ctx context.Context, id core.ID, wait bool) error {
	for {
		l.mu.Lock()
		ch, held := l.inflight[id]
		if !held {
			l.inflight[id] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if !wait {
			return fmt.Errorf("%w: %s", ErrBusy, id)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			// Holder released; race for the lock again.
		}
	}
}

// release frees the lock for id and wakes every waiter.
func (l *runLocks) release(id core.ID) {
	l.mu.Lock()
	ch := l.inflight[id]
	delete(l.inflight, id)
	l.mu.Unlock()

	if ch != nil {
		close(ch)
	}
}
