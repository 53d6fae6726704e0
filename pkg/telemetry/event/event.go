// Package event defines the analytics event model: the event value that
// flows through the dispatch pipeline, the context attached to it, and
// the catalog of known event names with their payload schemas.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source identifies where an event originated.
type Source string

// Known event sources.
const (
	SourceWeb    Source = "web"
	SourceMobile Source = "mobile"
	SourceServer Source = "server"
)

// PageContext describes the page the event was emitted from.
type PageContext struct {
	URL      string `json:"url,omitempty"`
	Referrer string `json:"referrer,omitempty"`
	Title    string `json:"title,omitempty"`
	Path     string `json:"path,omitempty"`
}

// DeviceContext describes the emitting device.
type DeviceContext struct {
	UserAgent    string `json:"user_agent,omitempty"`
	ScreenWidth  int    `json:"screen_width,omitempty"`
	ScreenHeight int    `json:"screen_height,omitempty"`
}

// Context carries well-known metadata attached to an event.
// UserID must be a pseudonymous identifier, never raw PII.
type Context struct {
	UserID      string         `json:"user_id,omitempty"`
	AnonymousID string         `json:"anonymous_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	Page        *PageContext   `json:"page,omitempty"`
	Device      *DeviceContext `json:"device,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	AppVersion  string         `json:"app_version,omitempty"`
	Source      Source         `json:"source,omitempty"`

	// Test marks synthetic traffic (E2E runs) so sinks can segregate it.
	Test bool `json:"test,omitempty"`
}

// Merge returns a new Context where non-zero fields of override win
// key-by-key and unspecified fields fall through from c unchanged.
func (c Context) Merge(override Context) Context {
	merged := c
	if override.UserID != "" {
		merged.UserID = override.UserID
	}
	if override.AnonymousID != "" {
		merged.AnonymousID = override.AnonymousID
	}
	if override.SessionID != "" {
		merged.SessionID = override.SessionID
	}
	if override.Page != nil {
		merged.Page = override.Page
	}
	if override.Device != nil {
		merged.Device = override.Device
	}
	if override.Locale != "" {
		merged.Locale = override.Locale
	}
	if override.AppVersion != "" {
		merged.AppVersion = override.AppVersion
	}
	if override.Source != "" {
		merged.Source = override.Source
	}
	if override.Test {
		merged.Test = true
	}
	return merged
}

// IsZero reports whether no field of the context is set.
func (c Context) IsZero() bool {
	return c == Context{}
}

// Event is a single analytics event.
// Events are immutable once constructed - the pipeline extends them by
// producing new values (see Clone), never by destructive edits.
type Event struct {
	// ID uniquely identifies the event across retries.
	ID string `json:"id"`

	// Name is the event name, ideally a key registered in a Catalog.
	Name string `json:"name"`

	// Payload holds the event properties.
	Payload map[string]any `json:"payload,omitempty"`

	// Context carries metadata; nil means "inherit defaults only".
	Context *Context `json:"context,omitempty"`

	// Timestamp is epoch milliseconds. Zero means "not yet stamped";
	// the dispatcher assigns it once and never mutates it afterward.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Clone returns a deep-enough copy for pipeline mutation: the payload
// map and context are copied, payload values are shared.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Payload != nil {
		clone.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			clone.Payload[k] = v
		}
	}
	if e.Context != nil {
		ctx := *e.Context
		clone.Context = &ctx
	}
	return &clone
}

// Stamped reports whether the event already carries a timestamp.
func (e *Event) Stamped() bool {
	return e.Timestamp != 0
}

// Payloader ties a payload type to its catalog event name.
// Implementing it on a payload struct gives the "correct payload for
// the name" guarantee at compile time: the name is derived from the
// type, so a payload can never be emitted under a foreign name.
type Payloader interface {
	EventName() string
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id        string
	context   *Context
	timestamp int64
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithContext attaches event-level context.
func WithContext(ctx Context) Option {
	return func(cfg *eventConfig) {
		cfg.context = &ctx
	}
}

// WithTimestamp sets an explicit timestamp in epoch milliseconds.
func WithTimestamp(ms int64) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = ms
	}
}

// New creates an event from a typed payload. The event name comes from
// the payload type, and the payload struct is flattened into the
// property map via its JSON representation.
func New[T Payloader](payload T, opts ...Option) *Event {
	evt := NewAny(payload.EventName(), toMap(payload), opts...)
	return evt
}

// NewAny creates an event with a dynamic name and property map.
// Unknown names are allowed; they simply bypass catalog validation.
func NewAny(name string, payload map[string]any, opts ...Option) *Event {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now().UnixMilli(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Event{
		ID:        cfg.id,
		Name:      name,
		Payload:   payload,
		Context:   cfg.context,
		Timestamp: cfg.timestamp,
	}
}

// toMap flattens a payload struct into a property map.
// Best effort - a payload that cannot round-trip through JSON yields
// an empty map rather than an error, matching the advisory stance of
// catalog validation.
func toMap(payload any) map[string]any {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(bytes, &m); err != nil {
		return map[string]any{}
	}
	return m
}
