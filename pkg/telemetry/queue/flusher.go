package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/errors"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// DeliverFunc re-dispatches one drained event.
type DeliverFunc func(ctx context.Context, evt *event.Event) error

// OnlineFunc reports whether the network is currently reachable.
type OnlineFunc func() bool

// AlwaysOnline is the default online check.
func AlwaysOnline() bool { return true }

// FlusherConfig configures the background flusher.
type FlusherConfig struct {
	// BatchSize is the number of events drained per cycle.
	// Default: 10.
	BatchSize int

	// PollInterval is how often the flusher checks for work.
	// Default: 10 seconds.
	PollInterval time.Duration

	// Online gates flushing; while it reports false nothing is drained.
	// Default: AlwaysOnline.
	Online OnlineFunc

	// Retry controls per-event delivery retries within one cycle.
	Retry errors.RetryConfig

	// Logger for flush diagnostics. May be nil.
	Logger *slog.Logger

	// OnDelivered is called after an event is successfully redelivered.
	OnDelivered func(Item)

	// OnFailure is called when an event is dropped permanently.
	OnFailure func(Item, error)
}

// DefaultFlusherConfig provides reasonable defaults.
var DefaultFlusherConfig = FlusherConfig{
	BatchSize:    10,
	PollInterval: 10 * time.Second,
	Retry:        errors.DefaultRetry,
}

// Flusher drains a queue back into the dispatch path whenever the
// online check passes. Transient delivery failures put the item back
// in the queue with its original enqueue time, so the TTL still counts
// from the first failure; permanent failures drop the item.
type Flusher struct {
	queue   *Queue
	deliver DeliverFunc
	cfg     FlusherConfig

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewFlusher creates a flusher for the given queue and delivery function.
func NewFlusher(q *Queue, deliver DeliverFunc, cfg FlusherConfig) *Flusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultFlusherConfig.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultFlusherConfig.PollInterval
	}
	if cfg.Online == nil {
		cfg.Online = AlwaysOnline
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultFlusherConfig.Retry
	}

	return &Flusher{
		queue:   q,
		deliver: deliver,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background flush loop.
func (f *Flusher) Start(ctx context.Context) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.run(ctx)
}

// Stop halts the flush loop. Items already drained in the current
// cycle finish delivery.
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	close(f.stopCh)
	f.running = false
}

func (f *Flusher) run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.FlushOnce(ctx)
		}
	}
}

// FlushOnce drains and redelivers a single batch. Exposed so callers
// can force a flush (e.g. right after the network comes back).
func (f *Flusher) FlushOnce(ctx context.Context) {
	if !f.cfg.Online() {
		return
	}

	items := f.queue.Drain(f.cfg.BatchSize)
	for _, item := range items {
		result := errors.WithRetryContext(ctx, f.cfg.Retry, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, f.deliver(ctx, item.Event)
		})

		if result.Err == nil {
			if f.cfg.OnDelivered != nil {
				f.cfg.OnDelivered(item)
			}
			continue
		}

		if errors.IsRetryable(result.Err) {
			// Still transient after in-cycle retries: back into the
			// queue for a later cycle.
			f.queue.requeue(item)
			continue
		}

		if f.cfg.Logger != nil {
			f.cfg.Logger.Warn("dropping undeliverable queued event",
				slog.String("event", item.Event.Name),
				slog.String("error", result.Err.Error()),
			)
		}
		if f.cfg.OnFailure != nil {
			f.cfg.OnFailure(item, result.Err)
		}
	}
}
