package telemetry

import (
	"log/slog"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/config"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/consent"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/middleware"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/observability"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/provider"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/queue"
)

// Builder accumulates dispatcher configuration and defers all wiring
// to Build. Every step tolerates nil and absent inputs, and repeated
// Build calls produce independent dispatchers.
//
//	d := telemetry.NewBuilder().
//		AddProvider(mixpanel).
//		WithConsent(map[consent.Category]bool{consent.CategoryAnalytics: true}).
//		WithDefaultContext(event.Context{Source: event.SourceWeb}).
//		Build()
type Builder struct {
	providers   []provider.Provider
	middlewares []middleware.Func

	manager        *consent.Manager
	initialConsent map[consent.Category]bool

	catalog    *event.Catalog
	defaultCtx event.Context
	router     Router
	onError    ErrorHandler
	online     queue.OnlineFunc
	queue      *queue.Queue
	queueStore queue.Store

	logger  *slog.Logger
	debug   bool
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	settings config.Settings
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		settings: config.Settings{SampleRate: 1.0},
	}
}

// AddProvider queues a provider for registration at Build time.
func (b *Builder) AddProvider(p provider.Provider) *Builder {
	if p != nil {
		b.providers = append(b.providers, p)
	}
	return b
}

// AddProviders queues multiple providers.
func (b *Builder) AddProviders(ps ...provider.Provider) *Builder {
	for _, p := range ps {
		b.AddProvider(p)
	}
	return b
}

// AddMiddleware queues a middleware for the chain.
func (b *Builder) AddMiddleware(fn middleware.Func) *Builder {
	if fn != nil {
		b.middlewares = append(b.middlewares, fn)
	}
	return b
}

// AddMiddlewares queues multiple middlewares.
func (b *Builder) AddMiddlewares(fns ...middleware.Func) *Builder {
	for _, fn := range fns {
		b.AddMiddleware(fn)
	}
	return b
}

// WithDefaultContext merges a context applied to all future events.
func (b *Builder) WithDefaultContext(ctx event.Context) *Builder {
	b.defaultCtx = b.defaultCtx.Merge(ctx)
	return b
}

// WithConsent sets the initial consent categories. Without it the
// dispatcher starts fully denied except the always-on necessary
// category.
func (b *Builder) WithConsent(initial map[consent.Category]bool) *Builder {
	b.initialConsent = initial
	return b
}

// WithConsentManager shares an externally owned consent manager, e.g.
// one driven by a cookie banner. Overrides WithConsent.
func (b *Builder) WithConsentManager(m *consent.Manager) *Builder {
	b.manager = m
	return b
}

// WithCatalog attaches an event catalog for advisory validation.
func (b *Builder) WithCatalog(c *event.Catalog) *Builder {
	b.catalog = c
	return b
}

// WithRouter installs the per-event router.
func (b *Builder) WithRouter(r Router) *Builder {
	b.router = r
	return b
}

// WithDebug enables debug-level dispatch logging.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.debug = debug
	return b
}

// WithOnError installs the error handler receiving isolated provider
// failures.
func (b *Builder) WithOnError(handler ErrorHandler) *Builder {
	b.onError = handler
	return b
}

// WithOnline installs the network reachability check gating dispatch.
// Default: always online.
func (b *Builder) WithOnline(online queue.OnlineFunc) *Builder {
	b.online = online
	return b
}

// WithQueue attaches a prebuilt offline queue. Gated events are queued
// for redelivery instead of dropped.
func (b *Builder) WithQueue(q *queue.Queue) *Builder {
	b.queue = q
	return b
}

// WithQueueStore builds an offline queue over the given store at Build
// time, using the configured settings for key, bounds, and TTL.
func (b *Builder) WithQueueStore(store queue.Store) *Builder {
	b.queueStore = store
	return b
}

// WithLogger installs the logger for dispatch diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics installs a metrics recorder. Default: no-op.
func (b *Builder) WithMetrics(m observability.MetricsRecorder) *Builder {
	b.metrics = m
	return b
}

// WithSpans installs a span manager for dispatch tracing. Default: no-op.
func (b *Builder) WithSpans(sm observability.SpanManager) *Builder {
	b.spans = sm
	return b
}

// WithSettings applies file-loaded settings: debug mode, catalog
// strictness, sampling and PII-scrub middleware, and queue bounds for
// WithQueueStore.
func (b *Builder) WithSettings(s config.Settings) *Builder {
	b.settings = s
	b.debug = s.Debug
	if b.catalog != nil {
		b.catalog.SetStrict(s.StrictCatalog)
	}
	if s.SampleRate >= 0 && s.SampleRate < 1.0 {
		b.AddMiddleware(middleware.Sampling(s.SampleRate))
	}
	if len(s.ScrubKeys) > 0 {
		b.AddMiddleware(middleware.ScrubPII(s.ScrubKeys...))
	}
	return b
}

// Build wires everything into one fully-constructed, independent
// dispatcher.
func (b *Builder) Build() *Dispatcher {
	if b.queue == nil && b.queueStore != nil {
		key := b.settings.QueueKey
		if key == "" {
			key = "telemetry.offline"
		}
		b.queue = queue.New(b.queueStore, key, queue.Options{
			MaxItems: b.settings.QueueMaxItems,
			TTL:      b.settings.QueueTTL,
			Logger:   b.logger,
		})
	}
	return newDispatcher(b)
}

// consentManager resolves the consent manager for one Build call.
func (b *Builder) consentManager() *consent.Manager {
	if b.manager != nil {
		return b.manager
	}
	return consent.NewManager(b.initialConsent)
}
