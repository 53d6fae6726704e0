package queue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// Item is one queued event with its enqueue time.
type Item struct {
	Event      *event.Event `json:"event"`
	EnqueuedAt int64        `json:"enqueued_at"` // epoch milliseconds
}

// Options configures queue bounds.
type Options struct {
	// MaxItems caps the queue; the oldest items are dropped first on
	// overflow. Default: 500.
	MaxItems int

	// TTL prunes items older than this on every load.
	// Default: 24 hours.
	TTL time.Duration

	// Logger for degradation warnings. May be nil.
	Logger *slog.Logger
}

// DefaultOptions provides reasonable defaults.
var DefaultOptions = Options{
	MaxItems: 500,
	TTL:      24 * time.Hour,
}

// Queue is a bounded FIFO buffer persisted through a Store.
//
// Every mutation persists immediately. A missing, unavailable, or
// corrupted store degrades to an empty queue and no-op writes - the
// queue never propagates storage failures to its caller.
type Queue struct {
	mu    sync.Mutex
	store Store
	key   string
	opts  Options
}

// New creates a queue persisting under the given storage key.
func New(store Store, key string, opts Options) *Queue {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultOptions.MaxItems
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions.TTL
	}

	return &Queue{
		store: store,
		key:   key,
		opts:  opts,
	}
}

// Enqueue appends an event with a fresh enqueue time and persists.
func (q *Queue) Enqueue(evt *event.Event) {
	if evt == nil {
		return
	}
	q.append(Item{Event: evt, EnqueuedAt: time.Now().UnixMilli()})
}

// requeue re-appends a previously drained item, preserving its
// original enqueue time so the TTL keeps counting from first failure.
func (q *Queue) requeue(item Item) {
	q.append(item)
}

func (q *Queue) append(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.load()
	items = append(items, item)
	q.save(items)
}

// Drain removes and returns up to max oldest items (FIFO) and
// persists the remainder. max <= 0 drains everything.
func (q *Queue) Drain(max int) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.load()
	if len(items) == 0 {
		return nil
	}

	if max <= 0 || max > len(items) {
		max = len(items)
	}

	drained := items[:max]
	q.save(items[max:])
	return drained
}

// Size counts queued items without draining.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.load())
}

// Clear empties the store.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(q.key); err != nil {
		q.warn("failed to clear queue", err)
	}
}

// load reads and prunes the persisted items. Corrupted or unavailable
// state reads as empty, never as an error.
func (q *Queue) load() []Item {
	data, err := q.store.Load(q.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			q.warn("failed to load queue, treating as empty", err)
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		q.warn("corrupted queue state, treating as empty", err)
		return nil
	}

	// Prune expired items on every load.
	cutoff := time.Now().Add(-q.opts.TTL).UnixMilli()
	fresh := items[:0]
	for _, item := range items {
		if item.EnqueuedAt >= cutoff {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// save persists items, keeping only the newest MaxItems.
func (q *Queue) save(items []Item) {
	if len(items) > q.opts.MaxItems {
		items = items[len(items)-q.opts.MaxItems:]
	}

	data, err := json.Marshal(items)
	if err != nil {
		q.warn("failed to serialize queue", err)
		return
	}
	if err := q.store.Save(q.key, data); err != nil {
		q.warn("failed to persist queue", err)
	}
}

func (q *Queue) warn(msg string, err error) {
	if q.opts.Logger != nil {
		q.opts.Logger.Warn(msg,
			slog.String("key", q.key),
			slog.String("error", err.Error()),
		)
	}
}
