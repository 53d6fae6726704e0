package middleware

import (
	"log/slog"
	"math/rand/v2"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// Built-in transformers. None are mandatory; they exist as ready-made
// examples of the pure-transformer shape.

// Logging logs every event flowing through the chain at debug level.
func Logging() Func {
	return func(evt *event.Event, ctx Context) *event.Event {
		if ctx.Logger != nil {
			ctx.Logger.Debug("event in pipeline",
				slog.String("event", evt.Name),
				slog.Int("payload_keys", len(evt.Payload)),
			)
		}
		return evt
	}
}

// redacted replaces scrubbed payload values.
const redacted = "[redacted]"

// ScrubPII redacts the given payload keys on every event.
func ScrubPII(keys ...string) Func {
	scrub := make(map[string]bool, len(keys))
	for _, key := range keys {
		scrub[key] = true
	}

	return func(evt *event.Event, _ Context) *event.Event {
		dirty := false
		for key := range evt.Payload {
			if scrub[key] {
				dirty = true
				break
			}
		}
		if !dirty {
			return evt
		}

		clone := evt.Clone()
		for key := range clone.Payload {
			if scrub[key] {
				clone.Payload[key] = redacted
			}
		}
		return clone
	}
}

// Sampling keeps a fraction of events: rate 1.0 keeps everything,
// rate 0.0 drops everything.
func Sampling(rate float64) Func {
	return func(evt *event.Event, _ Context) *event.Event {
		if rate >= 1.0 {
			return evt
		}
		if rate <= 0.0 || rand.Float64() >= rate {
			return nil
		}
		return evt
	}
}
