package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/consent"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/middleware"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/provider"
)

// noopProvider does minimal work to measure dispatch overhead.
type noopProvider struct {
	provider.Base
}

func newNoopProvider(id string) *noopProvider {
	return &noopProvider{Base: provider.NewBase(id)}
}

func (p *noopProvider) Track(_ context.Context, _ *event.Event) error {
	return nil
}

func granted() map[consent.Category]bool {
	return map[consent.Category]bool{consent.CategoryAnalytics: true}
}

func buildDispatcher(providers int) *telemetry.Dispatcher {
	b := telemetry.NewBuilder().WithConsent(granted())
	for i := 0; i < providers; i++ {
		b.AddProvider(newNoopProvider(providerID(i)))
	}
	return b.Build()
}

func providerID(i int) string {
	return "p" + string(rune('a'+i%26))
}

// BenchmarkTrack_1Provider measures single-provider dispatch.
func BenchmarkTrack_1Provider(b *testing.B) {
	d := buildDispatcher(1)
	ctx := context.Background()
	evt := event.NewAny("bench", map[string]any{"k": "v"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Track(ctx, evt)
	}
}

// BenchmarkTrack_10Providers measures fan-out to 10 providers.
func BenchmarkTrack_10Providers(b *testing.B) {
	d := buildDispatcher(10)
	ctx := context.Background()
	evt := event.NewAny("bench", map[string]any{"k": "v"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Track(ctx, evt)
	}
}

// BenchmarkTrack_ConsentDenied measures the gated fast path.
func BenchmarkTrack_ConsentDenied(b *testing.B) {
	d := telemetry.NewBuilder().AddProvider(newNoopProvider("p")).Build()
	ctx := context.Background()
	evt := event.NewAny("bench", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Track(ctx, evt)
	}
}

// BenchmarkTrack_MiddlewareChain_5 measures a 5-step pass-through chain.
func BenchmarkTrack_MiddlewareChain_5(b *testing.B) {
	builder := telemetry.NewBuilder().
		AddProvider(newNoopProvider("p")).
		WithConsent(granted())
	for i := 0; i < 5; i++ {
		builder.AddMiddleware(func(evt *event.Event, _ middleware.Context) *event.Event {
			return evt
		})
	}
	d := builder.Build()
	ctx := context.Background()
	evt := event.NewAny("bench", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Track(ctx, evt)
	}
}

// BenchmarkTrack_WithRouter measures routing resolution overhead.
func BenchmarkTrack_WithRouter(b *testing.B) {
	d := telemetry.NewBuilder().
		AddProvider(newNoopProvider("pa")).
		AddProvider(newNoopProvider("pb")).
		WithConsent(granted()).
		WithRouter(func(*event.Event) telemetry.RouteDecision {
			return telemetry.RouteDecision{Exclude: []string{"pb"}}
		}).
		Build()
	ctx := context.Background()
	evt := event.NewAny("bench", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Track(ctx, evt)
	}
}

// BenchmarkNewEvent measures typed event construction.
func BenchmarkNewEvent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		event.NewAny("bench", map[string]any{"k": "v"})
	}
}
