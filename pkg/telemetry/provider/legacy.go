package provider

import (
	"context"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// LegacyAdapter wraps a sink behind the old per-event configuration
// map (event name -> allowed). The pre-migration dispatch path only
// ever routed track calls through that map, so the adapter exposes
// Track plus lifecycle forwarding; identity capabilities are not part
// of the legacy surface.
type LegacyAdapter struct {
	inner   Provider
	allowed map[string]bool
}

// NewLegacyAdapter wraps a provider with a per-event allow map.
// Events absent from the map are allowed - the legacy configuration
// listed only the exceptions.
func NewLegacyAdapter(inner Provider, allowed map[string]bool) *LegacyAdapter {
	if allowed == nil {
		allowed = map[string]bool{}
	}
	return &LegacyAdapter{inner: inner, allowed: allowed}
}

// ID returns the wrapped provider's identifier.
func (a *LegacyAdapter) ID() string { return a.inner.ID() }

// Enabled reports the wrapped provider's gate.
func (a *LegacyAdapter) Enabled() bool { return a.inner.Enabled() }

// SetEnabled toggles the wrapped provider's gate.
func (a *LegacyAdapter) SetEnabled(enabled bool) { a.inner.SetEnabled(enabled) }

// Track forwards the event unless the legacy map disallows its name.
func (a *LegacyAdapter) Track(ctx context.Context, evt *event.Event) error {
	if allowed, ok := a.allowed[evt.Name]; ok && !allowed {
		return nil
	}
	return a.inner.Track(ctx, evt)
}

// Init forwards to the wrapped provider when it supports it.
func (a *LegacyAdapter) Init(ctx context.Context, opts InitOptions) error {
	if init, ok := a.inner.(Initializer); ok {
		return init.Init(ctx, opts)
	}
	return nil
}

// Flush forwards to the wrapped provider when it supports it.
func (a *LegacyAdapter) Flush(ctx context.Context) error {
	if flusher, ok := a.inner.(Flusher); ok {
		return flusher.Flush(ctx)
	}
	return nil
}

// Shutdown forwards to the wrapped provider when it supports it.
func (a *LegacyAdapter) Shutdown(ctx context.Context) error {
	if shutdowner, ok := a.inner.(Shutdowner); ok {
		return shutdowner.Shutdown(ctx)
	}
	return nil
}
