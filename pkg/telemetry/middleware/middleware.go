// Package middleware implements the event transformation pipeline:
// an ordered chain of pure transformers that may enrich, rewrite, or
// drop an event before it reaches any provider.
package middleware

import (
	"log/slog"
	"sync"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// Context carries dispatch-level collaborators into each transformer.
type Context struct {
	// Logger for middleware diagnostics. May be nil.
	Logger *slog.Logger

	// Debug is true when the dispatcher runs in debug mode.
	Debug bool
}

// Func transforms an event. Returning nil drops the event and stops
// the chain. Transformers must not mutate their input - enrich by
// cloning (see event.Event.Clone).
type Func func(evt *event.Event, ctx Context) *event.Event

// Chain folds transformers left-to-right over an event.
type Chain struct {
	mu    sync.RWMutex
	funcs []Func
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Use appends a transformer. Nil transformers are ignored.
func (c *Chain) Use(fn Func) *Chain {
	if fn == nil {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, fn)
	return c
}

// Process runs the chain over an event. The first transformer to
// return nil drops the event. A panicking transformer is contained and
// treated as a pass-through for that step: resilience of delivery wins
// over strictness of the failing step.
func (c *Chain) Process(evt *event.Event, ctx Context) *event.Event {
	if evt == nil {
		return nil
	}

	c.mu.RLock()
	funcs := make([]Func, len(c.funcs))
	copy(funcs, c.funcs)
	c.mu.RUnlock()

	current := evt
	for _, fn := range funcs {
		next, ok := apply(fn, current, ctx)
		if !ok {
			if ctx.Logger != nil {
				ctx.Logger.Warn("middleware panicked, passing event through",
					slog.String("event", current.Name),
				)
			}
			continue
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// apply runs one transformer, reporting ok=false if it panicked.
func apply(fn Func, evt *event.Event, ctx Context) (result *event.Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			result, ok = nil, false
		}
	}()
	return fn(evt, ctx), true
}

// Size returns the number of transformers in the chain.
func (c *Chain) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.funcs)
}

// IsEmpty reports whether the chain has no transformers.
func (c *Chain) IsEmpty() bool {
	return c.Size() == 0
}

// Clear removes all transformers. Intended for test reset.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = nil
}
