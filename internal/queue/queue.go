// Package queue holds forecast ids waiting for re-validation.
//
// Producers enqueue the id of every record they create or change; the
// validation cycle drains the queue. Entries carry their enqueue time and
// are dropped once older than the configured TTL. Enqueueing an id that is
// already waiting is a no-op.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue holds Capacity items.
	ErrQueueFull = errors.New("queue full")

	// ErrQueueEmpty is returned by Dequeue when no live item is waiting.
	ErrQueueEmpty = errors.New("queue empty")
)

// Item is one queued forecast id.
type Item struct {
	ForecastID string    `json:"forecast_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Options bounds a queue. Zero values mean unbounded and never expiring.
type Options struct {
	Capacity int
	TTL      time.Duration
}

// Queue is the update queue contract shared by the memory and Redis backends.
type Queue interface {
	Enqueue(ctx context.Context, forecastID string) error
	Dequeue(ctx context.Context) (Item, error)
	Drain(ctx context.Context, max int) ([]Item, error)
	Len(ctx context.Context) (int, error)
}

func (o Options) expired(it Item, now time.Time) bool {
	return o.TTL > 0 && now.Sub(it.EnqueuedAt) > o.TTL
}

// drain dequeues until max items are collected or the queue is empty.
func drain(ctx context.Context, q Queue, max int) ([]Item, error) {
	var items []Item
	for max <= 0 || len(items) < max {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		it, err := q.Dequeue(ctx)
		if errors.Is(err, ErrQueueEmpty) {
			break
		}
		if err != nil {
			return items, err
		}
		items = append(items, it)
	}
	return items, nil
}
