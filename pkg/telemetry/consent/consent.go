// Package consent tracks user consent categories and is the single
// authority on whether analytics delivery may proceed.
package consent

import (
	"sync"
	"time"
)

// Category is one named class of user permission.
type Category string

// Known consent categories.
const (
	// CategoryNecessary is always-on and cannot be revoked.
	CategoryNecessary Category = "necessary"

	CategoryAnalytics       Category = "analytics"
	CategoryMarketing       Category = "marketing"
	CategoryFunctional      Category = "functional"
	CategoryPersonalization Category = "personalization"
)

// knownCategories is the closed set accepted by Update.
var knownCategories = map[Category]bool{
	CategoryNecessary:       true,
	CategoryAnalytics:       true,
	CategoryMarketing:       true,
	CategoryFunctional:      true,
	CategoryPersonalization: true,
}

// State is a snapshot of consent. Absent categories are denied.
type State struct {
	Categories map[Category]bool `json:"categories"`
	UpdatedAt  int64             `json:"updated_at"` // epoch milliseconds
}

// Allows reports whether a category is granted. Default-deny: an
// absent category reads as false.
func (s State) Allows(cat Category) bool {
	return s.Categories[cat]
}

// clone returns an independent copy of the state.
func (s State) clone() State {
	categories := make(map[Category]bool, len(s.Categories))
	for cat, granted := range s.Categories {
		categories[cat] = granted
	}
	return State{Categories: categories, UpdatedAt: s.UpdatedAt}
}

// Mode selects how Has combines multiple categories.
type Mode int

const (
	// ModeAll requires every listed category to be granted.
	ModeAll Mode = iota

	// ModeAny requires at least one listed category to be granted.
	ModeAny
)

// Listener observes consent changes.
type Listener func(State)

// Manager owns the consent state. All reads return copies, never the
// live map, and every mutation stamps a fresh UpdatedAt.
type Manager struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a manager. With a nil initial state everything
// except the always-on necessary category starts denied.
func NewManager(initial map[Category]bool) *Manager {
	state := State{
		Categories: map[Category]bool{
			CategoryNecessary:       true,
			CategoryAnalytics:       false,
			CategoryMarketing:       false,
			CategoryFunctional:      false,
			CategoryPersonalization: false,
		},
		UpdatedAt: time.Now().UnixMilli(),
	}
	for cat, granted := range initial {
		if knownCategories[cat] {
			state.Categories[cat] = granted
		}
	}
	state.Categories[CategoryNecessary] = true

	return &Manager{
		state:     state,
		listeners: make(map[int]Listener),
	}
}

// Get returns a copy of the current state.
func (m *Manager) Get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Update merges a patch of known categories into the state. Unknown
// keys are silently dropped, necessary is force-coerced to true, and
// UpdatedAt is stamped. Listeners observe the new state.
func (m *Manager) Update(patch map[Category]bool) State {
	m.mu.Lock()
	for cat, granted := range patch {
		if knownCategories[cat] {
			m.state.Categories[cat] = granted
		}
	}
	m.state.Categories[CategoryNecessary] = true
	m.state.UpdatedAt = time.Now().UnixMilli()

	snapshot := m.state.clone()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		notify(l, snapshot)
	}
	return snapshot
}

// notify invokes a listener, containing panics so one failing listener
// never prevents the others from running.
func notify(l Listener, state State) {
	defer func() {
		_ = recover()
	}()
	l(state)
}

// Allows reports whether a single category is granted.
func (m *Manager) Allows(cat Category) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Allows(cat)
}

// AllowsAnalytics reports whether the analytics category is granted.
func (m *Manager) AllowsAnalytics() bool {
	return m.Allows(CategoryAnalytics)
}

// Has checks a compound of categories under the given mode.
func (m *Manager) Has(categories []Category, mode Mode) bool {
	if len(categories) == 0 {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	switch mode {
	case ModeAny:
		for _, cat := range categories {
			if m.state.Allows(cat) {
				return true
			}
		}
		return false
	default:
		for _, cat := range categories {
			if !m.state.Allows(cat) {
				return false
			}
		}
		return true
	}
}

// AddListener registers a listener and returns its handle.
func (m *Manager) AddListener(l Listener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[m.nextID] = l
	return m.nextID
}

// RemoveListener deregisters a listener by handle.
func (m *Manager) RemoveListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}
