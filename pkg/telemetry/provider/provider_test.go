package provider_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/provider"
)

// trackOnly implements just the required contract.
type trackOnly struct {
	provider.Base
	tracked []*event.Event
}

func newTrackOnly(id string) *trackOnly {
	return &trackOnly{Base: provider.NewBase(id)}
}

func (p *trackOnly) Track(_ context.Context, evt *event.Event) error {
	p.tracked = append(p.tracked, evt)
	return nil
}

// fullFeatured implements every optional capability.
type fullFeatured struct {
	trackOnly
	inits      int
	identifies int
	flushes    int
	shutdowns  int
}

func newFullFeatured(id string) *fullFeatured {
	return &fullFeatured{trackOnly: *newTrackOnly(id)}
}

func (p *fullFeatured) Init(context.Context, provider.InitOptions) error {
	p.inits++
	return nil
}

func (p *fullFeatured) Identify(context.Context, string, map[string]any) error {
	p.identifies++
	return nil
}

func (p *fullFeatured) Group(context.Context, string, map[string]any) error { return nil }

func (p *fullFeatured) Page(context.Context, event.PageContext) error { return nil }

func (p *fullFeatured) Flush(context.Context) error {
	p.flushes++
	return nil
}

func (p *fullFeatured) Shutdown(context.Context) error {
	p.shutdowns++
	return nil
}

func TestBaseGate(t *testing.T) {
	p := newTrackOnly("sink")

	if p.ID() != "sink" {
		t.Errorf("expected id sink, got %s", p.ID())
	}
	if !p.Enabled() {
		t.Error("expected provider enabled by default")
	}

	p.SetEnabled(false)
	if p.Enabled() {
		t.Error("expected provider disabled after SetEnabled(false)")
	}
}

func TestCapabilityProbing(t *testing.T) {
	minimal := provider.Capabilities(newTrackOnly("minimal"))
	if len(minimal) != 0 {
		t.Errorf("expected no optional capabilities, got %v", minimal)
	}

	full := provider.Capabilities(newFullFeatured("full"))
	if len(full) != 6 {
		t.Errorf("expected all 6 optional capabilities, got %v", full)
	}
}

func TestRegistryOrderAndGates(t *testing.T) {
	reg := provider.NewRegistry()
	p1 := newTrackOnly("first")
	p2 := newTrackOnly("second")

	reg.Register(p1)
	reg.Register(p2)

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "first" || ids[1] != "second" {
		t.Errorf("expected insertion order [first second], got %v", ids)
	}

	// Registry gate closed: provider inactive even though its own gate is open.
	reg.SetEnabled("first", false)
	if reg.IsActive("first") {
		t.Error("expected first inactive with registry gate closed")
	}

	// Provider gate closed: inactive even though registry gate is open.
	reg.SetEnabled("first", true)
	p1.SetEnabled(false)
	if reg.IsActive("first") {
		t.Error("expected first inactive with provider gate closed")
	}

	active := reg.Active()
	if len(active) != 1 || active[0].ID() != "second" {
		t.Errorf("expected only second active, got %d providers", len(active))
	}
}

func TestRegistryReregisterKeepsPosition(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(newTrackOnly("a"))
	reg.Register(newTrackOnly("b"))

	replacement := newTrackOnly("a")
	reg.Register(replacement)

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "a" {
		t.Errorf("expected a to keep its position, got %v", ids)
	}

	got, _ := reg.Get("a")
	if got != provider.Provider(replacement) {
		t.Error("expected re-registration to replace the provider")
	}
}

func TestRegistryDeregister(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(newTrackOnly("a"))

	removed, ok := reg.Deregister("a")
	if !ok || removed.ID() != "a" {
		t.Fatal("expected provider to be removed")
	}
	if reg.Has("a") || reg.Len() != 0 {
		t.Error("expected empty registry after deregister")
	}
	if _, ok := reg.Deregister("a"); ok {
		t.Error("expected second deregister to report missing")
	}
}

func TestLegacyAdapterFiltersByEventName(t *testing.T) {
	inner := newTrackOnly("legacy")
	adapter := provider.NewLegacyAdapter(inner, map[string]bool{
		"blocked_event": false,
		"listed_event":  true,
	})

	ctx := context.Background()
	_ = adapter.Track(ctx, event.NewAny("blocked_event", nil))
	_ = adapter.Track(ctx, event.NewAny("listed_event", nil))
	_ = adapter.Track(ctx, event.NewAny("unlisted_event", nil))

	if len(inner.tracked) != 2 {
		t.Fatalf("expected 2 events through, got %d", len(inner.tracked))
	}
	for _, evt := range inner.tracked {
		if evt.Name == "blocked_event" {
			t.Error("expected blocked event to be filtered")
		}
	}
}

func TestLegacyAdapterLifecycleForwarding(t *testing.T) {
	full := newFullFeatured("legacy")
	adapter := provider.NewLegacyAdapter(full, nil)

	ctx := context.Background()
	_ = adapter.Init(ctx, provider.InitOptions{})
	_ = adapter.Flush(ctx)
	_ = adapter.Shutdown(ctx)

	if full.inits != 1 || full.flushes != 1 || full.shutdowns != 1 {
		t.Errorf("expected lifecycle forwarded, got inits=%d flushes=%d shutdowns=%d",
			full.inits, full.flushes, full.shutdowns)
	}

	// Wrapping a track-only provider must not fail lifecycle calls.
	bare := provider.NewLegacyAdapter(newTrackOnly("bare"), nil)
	if err := bare.Init(ctx, provider.InitOptions{}); err != nil {
		t.Errorf("expected no-op init, got %v", err)
	}
}
