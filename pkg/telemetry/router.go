package telemetry

import (
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/provider"
)

// Router computes a per-event routing decision, independent of the
// global enable/disable state of each provider.
type Router func(evt *event.Event) RouteDecision

// RouteDecision narrows which providers receive a single event.
//
// Include is a whitelist: when non-empty, only listed providers
// qualify. Exclude is always subtracted after include filtering, and
// exclude sets from the router and the call site are unioned - an
// exclusion from either source is sufficient.
type RouteDecision struct {
	Include []string
	Exclude []string
}

// merge unions two decisions. Includes and excludes are each unioned;
// intersection is never used.
func (d RouteDecision) merge(other RouteDecision) RouteDecision {
	return RouteDecision{
		Include: unionStrings(d.Include, other.Include),
		Exclude: unionStrings(d.Exclude, other.Exclude),
	}
}

// apply filters candidate providers: include whitelist first, then
// exclude subtraction.
func (d RouteDecision) apply(candidates []provider.Provider) []provider.Provider {
	selected := candidates
	if len(d.Include) > 0 {
		included := toSet(d.Include)
		selected = nil
		for _, p := range candidates {
			if included[p.ID()] {
				selected = append(selected, p)
			}
		}
	}

	if len(d.Exclude) == 0 {
		return selected
	}
	excluded := toSet(d.Exclude)
	surviving := selected[:0:0]
	for _, p := range selected {
		if !excluded[p.ID()] {
			surviving = append(surviving, p)
		}
	}
	return surviving
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := toSet(a)
	out := make([]string, len(a), len(a)+len(b))
	copy(out, a)
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// route evaluates a router defensively: a panicking router yields an
// empty decision so every enabled provider still qualifies.
func route(r Router, evt *event.Event) (decision RouteDecision) {
	if r == nil {
		return RouteDecision{}
	}
	defer func() {
		if recover() != nil {
			decision = RouteDecision{}
		}
	}()
	return r(evt)
}
