package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"forecast-guard/internal/observability"
)

// enqueueScript pushes ARGV[2] onto KEYS[1] unless ARGV[1] is already a
// member of KEYS[2]. Returns 1 when pushed, 0 when already queued and -1
// when the list is at capacity ARGV[3].
var enqueueScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
	return 0
end
local capacity = tonumber(ARGV[3])
if capacity > 0 and redis.call('LLEN', KEYS[1]) >= capacity then
	return -1
end
redis.call('RPUSH', KEYS[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[4])
return 1
`)

// dequeueScript pops the head of KEYS[1] and removes its forecast id from
// KEYS[2] in the same step. Returns false when the list is empty.
var dequeueScript = redis.NewScript(`
local raw = redis.call('LPOP', KEYS[1])
if not raw then
	return false
end
local ok, item = pcall(cjson.decode, raw)
if ok and type(item) == 'table' and type(item['forecast_id']) == 'string' then
	redis.call('HDEL', KEYS[2], item['forecast_id'])
end
return raw
`)

// RedisQueue is a Queue backed by a Redis list plus a membership hash,
// so several validator processes can share one queue.
type RedisQueue struct {
	client  *redis.Client
	key     string
	members string
	opts    Options
	now     func() time.Time
}

// NewRedisQueue connects to addr and verifies the connection.
func NewRedisQueue(addr string, db int, key string, opts Options) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisQueueWithClient(client, key, opts), nil
}

// NewRedisQueueWithClient wraps an existing client.
func NewRedisQueueWithClient(client *redis.Client, key string, opts Options) *RedisQueue {
	return &RedisQueue{
		client:  client,
		key:     key,
		members: key + ":members",
		opts:    opts,
		now:     time.Now,
	}
}

// WithClock sets a custom clock function for deterministic expiry.
func (q *RedisQueue) WithClock(now func() time.Time) *RedisQueue {
	q.now = now
	return q
}

// Close closes the underlying client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue appends forecastID unless it is already waiting.
func (q *RedisQueue) Enqueue(ctx context.Context, forecastID string) error {
	if forecastID == "" {
		return errors.New("enqueue: empty forecast id")
	}

	item := Item{ForecastID: forecastID, EnqueuedAt: q.now().UTC()}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal queue item: %w", err)
	}

	res, err := enqueueScript.Run(ctx, q.client,
		[]string{q.key, q.members},
		forecastID, data, q.opts.Capacity, item.EnqueuedAt.Unix(),
	).Int()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", forecastID, err)
	}
	if res < 0 {
		observability.RecordQueueRejected()
		return ErrQueueFull
	}
	return nil
}

// Dequeue pops the oldest live item, dropping expired and malformed ones.
func (q *RedisQueue) Dequeue(ctx context.Context) (Item, error) {
	now := q.now()
	expired := 0
	defer func() {
		if expired > 0 {
			observability.RecordQueueExpired(expired)
		}
	}()

	for {
		raw, err := dequeueScript.Run(ctx, q.client, []string{q.key, q.members}).Text()
		if errors.Is(err, redis.Nil) {
			return Item{}, ErrQueueEmpty
		}
		if err != nil {
			return Item{}, fmt.Errorf("dequeue: %w", err)
		}

		var it Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil || it.ForecastID == "" {
			observability.RecordQueueMalformed()
			continue
		}

		if q.opts.expired(it, now) {
			expired++
			continue
		}
		return it, nil
	}
}

// Drain dequeues up to max live items. max <= 0 drains everything.
func (q *RedisQueue) Drain(ctx context.Context, max int) ([]Item, error) {
	items, err := drain(ctx, q, max)
	if n, lenErr := q.Len(ctx); lenErr == nil {
		observability.UpdateQueueDepth(n)
	}
	return items, err
}

// Len returns the number of waiting items, expired ones included.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return int(n), nil
}

var _ Queue = (*RedisQueue)(nil)
