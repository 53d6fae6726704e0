// Package provider defines the contract every analytics sink plugs in
// through, plus the registry that holds them.
//
// The required surface is deliberately minimal: identity, an enable
// gate, and Track. Everything else (identify, group, page, lifecycle)
// is an optional capability detected with a type assertion at the call
// site - capability probing instead of a fat base interface, so
// heterogeneous vendor SDKs mix in one registry without stub methods.
package provider

import (
	"context"
	"sync/atomic"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/consent"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

// Provider is the required capability of every sink.
type Provider interface {
	// ID returns the stable provider identifier.
	ID() string

	// Enabled reports the provider's own enable gate. A provider may
	// disable itself, e.g. after shutdown.
	Enabled() bool

	// SetEnabled toggles the provider's own enable gate.
	SetEnabled(enabled bool)

	// Track delivers one event to the sink.
	Track(ctx context.Context, evt *event.Event) error
}

// InitOptions is what the core hands a provider at registration time
// and again on every consent change, so the provider can self-configure
// vendor-side consent signaling.
type InitOptions struct {
	Consent        consent.State
	DefaultContext event.Context
}

// Optional capabilities, probed with type assertions.

// Initializer receives consent and default context at registration and
// on every consent change.
type Initializer interface {
	Init(ctx context.Context, opts InitOptions) error
}

// Identifier associates subsequent events with a pseudonymous user.
type Identifier interface {
	Identify(ctx context.Context, userID string, traits map[string]any) error
}

// Grouper associates the user with a group or account.
type Grouper interface {
	Group(ctx context.Context, groupID string, traits map[string]any) error
}

// Pager records a page view.
type Pager interface {
	Page(ctx context.Context, page event.PageContext) error
}

// Flusher forces buffered events out of the sink.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Shutdowner releases the sink's resources.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Capabilities returns the names of the optional capabilities a
// provider implements. Useful for debug logging.
func Capabilities(p Provider) []string {
	var caps []string
	if _, ok := p.(Initializer); ok {
		caps = append(caps, "init")
	}
	if _, ok := p.(Identifier); ok {
		caps = append(caps, "identify")
	}
	if _, ok := p.(Grouper); ok {
		caps = append(caps, "group")
	}
	if _, ok := p.(Pager); ok {
		caps = append(caps, "page")
	}
	if _, ok := p.(Flusher); ok {
		caps = append(caps, "flush")
	}
	if _, ok := p.(Shutdowner); ok {
		caps = append(caps, "shutdown")
	}
	return caps
}

// Base provides the identity and enable-gate boilerplate for vendor
// adapters to embed. The gate starts open.
type Base struct {
	id      string
	enabled atomic.Bool
}

// NewBase creates a Base with the given provider ID, enabled.
func NewBase(id string) Base {
	var b Base
	b.id = id
	b.enabled.Store(true)
	return b
}

// ID returns the provider identifier.
func (b *Base) ID() string { return b.id }

// Enabled reports the provider's own enable gate.
func (b *Base) Enabled() bool { return b.enabled.Load() }

// SetEnabled toggles the provider's own enable gate.
func (b *Base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }
