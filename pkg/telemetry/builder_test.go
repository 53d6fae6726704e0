package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/config"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/consent"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/queue"
)

func TestBuilder_ToleratesNilEverywhere(t *testing.T) {
	assert.NotPanics(t, func() {
		d := NewBuilder().
			AddProvider(nil).
			AddProviders(nil, nil).
			AddMiddleware(nil).
			WithConsent(nil).
			WithConsentManager(nil).
			WithCatalog(nil).
			WithRouter(nil).
			WithOnError(nil).
			WithOnline(nil).
			WithQueue(nil).
			WithQueueStore(nil).
			WithLogger(nil).
			WithMetrics(nil).
			WithSpans(nil).
			Build()

		require.NotNil(t, d)
		d.Track(context.Background(), event.NewAny("e", nil))
	})
}

func TestBuilder_IndependentInstances(t *testing.T) {
	p1 := newMockProvider("p")
	p2 := newMockProvider("p")

	d1 := NewBuilder().AddProvider(p1).WithConsent(analyticsGranted()).Build()
	d2 := NewBuilder().AddProvider(p2).Build()

	d1.Track(context.Background(), event.NewAny("e", nil))

	assert.Len(t, p1.received(), 1)
	assert.Empty(t, p2.received(), "second instance has its own consent state")

	// Consent state is also independent.
	d2.SetConsent(analyticsGranted())
	assert.NotSame(t, d1.Consent(), d2.Consent())
}

func TestBuilder_RepeatedBuild(t *testing.T) {
	b := NewBuilder().WithConsent(analyticsGranted())

	d1 := b.Build()
	d2 := b.Build()

	require.NotSame(t, d1, d2)
	d1.SetConsent(map[consent.Category]bool{consent.CategoryAnalytics: false})
	assert.True(t, d2.Consent().AllowsAnalytics(), "builds do not share consent state")
}

func TestBuilder_SharedConsentManager(t *testing.T) {
	m := consent.NewManager(nil)
	p := newMockProvider("p")
	d := NewBuilder().AddProvider(p).WithConsentManager(m).Build()

	// An external update (e.g. a cookie banner) opens the gate.
	m.Update(analyticsGranted())
	d.Track(context.Background(), event.NewAny("e", nil))
	assert.Len(t, p.received(), 1)
}

func TestBuilder_WithSettings(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
debug: true
sample_rate: 0.0
scrub_keys: [email]
queue:
  key: app.offline
  max_items: 5
  ttl: 1h
`))
	require.NoError(t, err)

	p := newMockProvider("p")
	d := NewBuilder().
		AddProvider(p).
		WithConsent(analyticsGranted()).
		WithSettings(config.LoadSettings(cfg)).
		WithQueueStore(queue.NewMemoryStore()).
		Build()

	// sample_rate 0.0 installs a drop-everything sampler.
	d.Track(context.Background(), event.NewAny("e", nil))
	assert.Empty(t, p.received())
	require.NotNil(t, d.Queue())
	assert.Zero(t, d.Queue().Size(), "sampled-out events are dropped, not queued")
}

func TestBuilder_CatalogStrictFromSettings(t *testing.T) {
	catalog := event.NewCatalog()
	NewBuilder().
		WithCatalog(catalog).
		WithSettings(config.Settings{StrictCatalog: true, SampleRate: 1.0}).
		Build()

	assert.True(t, catalog.Strict())
}

func TestBuilder_QueueStoreUsesSettingsBounds(t *testing.T) {
	store := queue.NewMemoryStore()
	d := NewBuilder().
		WithSettings(config.Settings{SampleRate: 1.0, QueueKey: "k", QueueMaxItems: 2, QueueTTL: time.Hour}).
		WithQueueStore(store).
		Build()

	q := d.Queue()
	require.NotNil(t, q)
	q.Enqueue(event.NewAny("a", nil))
	q.Enqueue(event.NewAny("b", nil))
	q.Enqueue(event.NewAny("c", nil))
	assert.Equal(t, 2, q.Size(), "oldest dropped beyond max_items")
}
