package realtime

import (
	"context"
	"log"
	"sync"
)

// Hub fans one change-feed subscription out to every connected client.
// Each client registers an onChange callback whose handler re-runs the full
// active-listing read; the refetched set supersedes any local state, so no
// ordering is promised beyond eventual consistency.
type Hub struct {
	feed ChangeFeed

	mu       sync.Mutex
	handlers map[int64]func()
	nextID   int64
}

// NewHub creates a Hub over the given change feed.
func NewHub(feed ChangeFeed) *Hub {
	return &Hub{
		feed:     feed,
		handlers: make(map[int64]func()),
	}
}

// Register adds an onChange callback and returns an unregister func.
// The unregister func must be called on client teardown to prevent leaked
// handlers; calling it more than once is harmless.
func (h *Hub) Register(onChange func()) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = onChange
	count := len(h.handlers)
	h.mu.Unlock()

	log.Printf("[Hub] Register: id=%d clients=%d", id, count)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			count := len(h.handlers)
			h.mu.Unlock()
			log.Printf("[Hub] Unregister: id=%d clients=%d", id, count)
		})
	}
}

// Run subscribes to the change feed and dispatches until ctx is cancelled.
// Blocks; run it in its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	changes, cancel, err := h.feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	log.Printf("[Hub] Running")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Hub] Stopped")
			return nil
		case _, ok := <-changes:
			if !ok {
				log.Printf("[Hub] Change feed closed")
				return nil
			}
			h.dispatch()
		}
	}
}

// dispatch invokes every registered handler with the lock released, so a
// handler can unregister itself without deadlocking.
func (h *Hub) dispatch() {
	h.mu.Lock()
	snapshot := make([]func(), 0, len(h.handlers))
	for _, fn := range h.handlers {
		snapshot = append(snapshot, fn)
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}
