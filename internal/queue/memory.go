package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"forecast-guard/internal/observability"
)

const minCompactCap = 64

// MemoryQueue is an in-process Queue.
type MemoryQueue struct {
	mu      sync.Mutex
	opts    Options
	items   []Item
	members map[string]struct{}
	now     func() time.Time
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts:    opts,
		members: make(map[string]struct{}),
		now:     time.Now,
	}
}

// WithClock sets a custom clock function for deterministic expiry.
func (q *MemoryQueue) WithClock(now func() time.Time) *MemoryQueue {
	q.now = now
	return q
}

// Enqueue appends forecastID unless it is already waiting.
func (q *MemoryQueue) Enqueue(_ context.Context, forecastID string) error {
	if forecastID == "" {
		return errors.New("enqueue: empty forecast id")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.members[forecastID]; ok {
		return nil
	}
	if q.opts.Capacity > 0 && len(q.items) >= q.opts.Capacity {
		observability.RecordQueueRejected()
		return ErrQueueFull
	}

	q.items = append(q.items, Item{ForecastID: forecastID, EnqueuedAt: q.now().UTC()})
	q.members[forecastID] = struct{}{}
	observability.UpdateQueueDepth(len(q.items))
	return nil
}

// Dequeue removes and returns the oldest live item, dropping expired ones.
func (q *MemoryQueue) Dequeue(_ context.Context) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	expired := 0
	defer func() {
		if expired > 0 {
			observability.RecordQueueExpired(expired)
		}
		observability.UpdateQueueDepth(len(q.items))
	}()

	for len(q.items) > 0 {
		it := q.items[0]
		q.items[0] = Item{}
		q.items = q.items[1:]
		delete(q.members, it.ForecastID)
		q.compact()

		if q.opts.expired(it, now) {
			expired++
			continue
		}
		return it, nil
	}
	return Item{}, ErrQueueEmpty
}

// compact moves the live items to a fresh array once less than half of the
// current one is in use, so popped slots can be collected.
func (q *MemoryQueue) compact() {
	if len(q.items) == 0 {
		q.items = nil
		return
	}
	if c := cap(q.items); c > minCompactCap && len(q.items) < c/2 {
		q.items = append(make([]Item, 0, len(q.items)), q.items...)
	}
}

// Drain dequeues up to max live items. max <= 0 drains everything.
func (q *MemoryQueue) Drain(ctx context.Context, max int) ([]Item, error) {
	return drain(ctx, q, max)
}

// Len returns the number of waiting items, expired ones included.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

var _ Queue = (*MemoryQueue)(nil)
