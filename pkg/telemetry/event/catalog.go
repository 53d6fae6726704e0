package event

import (
	"fmt"
	"log/slog"
	"sync"
)

// Schema describes the expected payload shape for one event name.
type Schema struct {
	// Name is the event name this schema validates.
	Name string

	// Description explains when the event is emitted.
	Description string

	// RequiredKeys must all be present in the payload.
	RequiredKeys []string

	// Validator is an optional custom validation function.
	Validator func(*Event) error
}

// Check returns the first schema violation, or nil.
func (s *Schema) Check(evt *Event) error {
	if evt.Name != s.Name {
		return fmt.Errorf("event name mismatch: expected %s, got %s", s.Name, evt.Name)
	}
	for _, key := range s.RequiredKeys {
		if _, ok := evt.Payload[key]; !ok {
			return fmt.Errorf("missing required payload key %q", key)
		}
	}
	if s.Validator != nil {
		if err := s.Validator(evt); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// Catalog is the closed set of known event names and their schemas.
//
// Validation is advisory: Validate logs violations and never blocks
// delivery. It runs only when the catalog is strict (development and
// test builds); production catalogs skip it entirely so a malformed
// event costs nothing and loses nothing.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	strict  bool
	logger  *slog.Logger
}

// NewCatalog creates an empty, non-strict catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		schemas: make(map[string]*Schema),
	}
}

// SetStrict toggles runtime validation.
func (c *Catalog) SetStrict(strict bool) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strict = strict
	return c
}

// Strict reports whether validation is active.
func (c *Catalog) Strict() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strict
}

// SetLogger sets the logger used for validation diagnostics.
func (c *Catalog) SetLogger(logger *slog.Logger) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
	return c
}

// Register adds a schema. A schema with the same name is replaced.
func (c *Catalog) Register(schema *Schema) error {
	if schema.Name == "" {
		return fmt.Errorf("event name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schema.Name] = schema
	return nil
}

// MustRegister adds a schema, panicking on error. Intended for
// package-level catalog construction.
func (c *Catalog) MustRegister(schema *Schema) {
	if err := c.Register(schema); err != nil {
		panic(fmt.Sprintf("failed to register event schema: %v", err))
	}
}

// Has returns true if a schema exists for the event name.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[name]
	return ok
}

// Get returns the schema for an event name.
func (c *Catalog) Get(name string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[name]
	return schema, ok
}

// Names returns all registered event names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	return names
}

// Check returns the schema violation for an event, or nil.
// Unknown event names are allowed and pass unchecked.
func (c *Catalog) Check(evt *Event) error {
	c.mu.RLock()
	schema, ok := c.schemas[evt.Name]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	return schema.Check(evt)
}

// Validate checks an event against its schema and logs violations.
// It never returns an error to the caller - a malformed event must not
// block delivery. No-op unless the catalog is strict.
func (c *Catalog) Validate(evt *Event) {
	c.mu.RLock()
	strict := c.strict
	logger := c.logger
	c.mu.RUnlock()

	if !strict {
		return
	}

	if err := c.Check(evt); err != nil && logger != nil {
		logger.Warn("event failed schema validation",
			slog.String("event", evt.Name),
			slog.String("error", err.Error()),
		)
	}
}
