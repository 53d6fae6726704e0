package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/consent"
	tkerrors "github.com/randalmurphal/telemetrykit/pkg/telemetry/errors"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/middleware"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/observability"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/provider"
	"github.com/randalmurphal/telemetrykit/pkg/telemetry/queue"
)

// ErrorHandler receives isolated provider failures. The event is nil
// for lifecycle failures (init, flush, shutdown).
type ErrorHandler func(err error, evt *event.Event)

// Dispatcher is the mediator product code talks to: it owns the
// provider registry, consent manager, middleware chain, default
// context, and per-event router.
//
// No method returns an error or panics to the caller. Provider
// failures are isolated per provider and surface only through the
// error handler and logs.
//
// Lifecycle is implicit in state: no providers registered, providers
// registered, active. Use NewBuilder to construct one.
type Dispatcher struct {
	mu sync.Mutex

	registry *provider.Registry
	consent  *consent.Manager
	chain    *middleware.Chain
	catalog  *event.Catalog

	defaultCtx event.Context
	router     Router

	onError ErrorHandler
	online  queue.OnlineFunc
	queue   *queue.Queue

	logger  *slog.Logger
	debug   bool
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	// consent gate cache, keyed by the state's UpdatedAt fingerprint so
	// Track skips the manager on the hot path.
	cachedConsentAt int64
	cachedAllowed   bool
	cacheValid      bool

	consentListener int
}

func newDispatcher(b *Builder) *Dispatcher {
	d := &Dispatcher{
		registry:   provider.NewRegistry(),
		consent:    b.consentManager(),
		chain:      middleware.NewChain(),
		catalog:    b.catalog,
		defaultCtx: b.defaultCtx,
		router:     b.router,
		onError:    b.onError,
		online:     b.online,
		queue:      b.queue,
		logger:     b.logger,
		debug:      b.debug,
		metrics:    b.metrics,
		spans:      b.spans,
	}
	if d.online == nil {
		d.online = queue.AlwaysOnline
	}
	if d.metrics == nil {
		d.metrics = observability.NoopMetrics{}
	}
	if d.spans == nil {
		d.spans = observability.NoopSpanManager{}
	}

	// React to consent changes from any source, not only SetConsent:
	// invalidate the gate cache and re-init every provider so vendor
	// consent signaling happens synchronously with the change.
	d.consentListener = d.consent.AddListener(func(state consent.State) {
		d.mu.Lock()
		d.cacheValid = false
		d.mu.Unlock()

		observability.LogConsentChange(d.logger, state.Allows(consent.CategoryAnalytics), state.UpdatedAt)
		d.reinitProviders(context.Background())
	})

	for _, fn := range b.middlewares {
		d.chain.Use(fn)
	}
	for _, p := range b.providers {
		d.AddProvider(p)
	}
	return d
}

// AddProvider registers a provider and immediately initializes it with
// the current consent and default context. Init failures go to the
// error handler, never to the caller.
func (d *Dispatcher) AddProvider(p provider.Provider) *Dispatcher {
	if p == nil {
		return d
	}
	d.registry.Register(p)
	observability.LogProviderRegistered(d.logger, p.ID(), provider.Capabilities(p))
	d.initProvider(context.Background(), p)
	return d
}

// RemoveProvider shuts a provider down if it is capable, then
// deregisters it.
func (d *Dispatcher) RemoveProvider(id string) *Dispatcher {
	p, ok := d.registry.Deregister(id)
	if !ok {
		return d
	}
	if s, ok := p.(provider.Shutdowner); ok {
		if err := safeCall(func() error { return s.Shutdown(context.Background()) }); err != nil {
			d.reportProviderError(id, "shutdown", "", err, nil)
		}
	}
	return d
}

// EnableProvider opens the registry-level gate for a provider,
// independent of the provider's own gate.
func (d *Dispatcher) EnableProvider(id string) *Dispatcher {
	d.registry.SetEnabled(id, true)
	return d
}

// DisableProvider closes the registry-level gate for a provider.
// It prevents future dispatch but does not abort in-flight work.
func (d *Dispatcher) DisableProvider(id string) *Dispatcher {
	d.registry.SetEnabled(id, false)
	return d
}

// Use appends a middleware to the chain.
func (d *Dispatcher) Use(fn middleware.Func) *Dispatcher {
	d.chain.Use(fn)
	return d
}

// SetRouter installs the per-event router.
func (d *Dispatcher) SetRouter(r Router) *Dispatcher {
	d.mu.Lock()
	d.router = r
	d.mu.Unlock()
	return d
}

// SetConsent merges a consent patch. The gate cache is invalidated and
// every registered provider is re-initialized so vendor-side consent
// signaling happens synchronously with the state change.
func (d *Dispatcher) SetConsent(patch map[consent.Category]bool) *Dispatcher {
	d.consent.Update(patch)
	return d
}

// SetDefaultContext shallow-merges a patch into the default context
// applied to all future events.
func (d *Dispatcher) SetDefaultContext(patch event.Context) *Dispatcher {
	d.mu.Lock()
	d.defaultCtx = d.defaultCtx.Merge(patch)
	d.mu.Unlock()
	return d
}

// Consent returns the consent manager, e.g. to register listeners.
func (d *Dispatcher) Consent() *consent.Manager {
	return d.consent
}

// DefaultContext returns a copy of the current default context.
func (d *Dispatcher) DefaultContext() event.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultCtx
}

// Queue returns the offline queue, or nil when none is configured.
func (d *Dispatcher) Queue() *queue.Queue {
	return d.queue
}

// Track dispatches one event: enrich with default context and
// timestamp, run the middleware chain, gate on consent and the online
// check, resolve routing, and fan out to each surviving enabled
// provider with per-provider error isolation.
//
// Gated events (consent denied or offline) are dropped unless an
// offline queue is configured, in which case they are queued for
// redelivery instead.
func (d *Dispatcher) Track(ctx context.Context, evt *event.Event, opts ...RouteDecision) {
	if evt == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	ctx, span := d.spans.StartDispatchSpan(ctx, evt.Name, evt.ID)

	processed := d.chain.Process(d.enrich(evt), middleware.Context{Logger: d.logger, Debug: d.debug})
	if processed == nil {
		d.drop(ctx, span, evt.Name, "middleware")
		return
	}

	if d.catalog != nil {
		d.catalog.Validate(processed)
	}

	if allowed, reason := d.gate(); !allowed {
		if d.queue != nil {
			d.queue.Enqueue(processed)
			d.metrics.RecordQueueDepth(ctx, int64(d.queue.Size()))
			d.spans.AddSpanEvent(ctx, "queued_offline")
			observability.LogDrop(d.logger, processed.Name, reason+" (queued)")
			d.spans.EndSpanWithError(span, nil)
			return
		}
		d.drop(ctx, span, processed.Name, reason)
		return
	}

	targets := d.resolveTargets(processed, opts)
	for _, p := range targets {
		d.trackOne(ctx, p, processed)
	}

	d.metrics.RecordTracked(ctx, processed.Name, len(targets))
	observability.LogDispatch(d.logger, processed.Name, len(targets))
	d.spans.EndSpanWithError(span, nil)
}

// Identify forwards a user identity to every active provider exposing
// the capability, with the same per-provider isolation as Track.
func (d *Dispatcher) Identify(ctx context.Context, userID string, traits map[string]any) {
	defer func() {
		_ = recover()
	}()

	for _, p := range d.registry.Active() {
		ident, ok := p.(provider.Identifier)
		if !ok {
			continue
		}
		if err := safeCall(func() error { return ident.Identify(ctx, userID, traits) }); err != nil {
			d.reportProviderError(p.ID(), "identify", "", err, nil)
		}
	}
}

// Group associates the user with a group on every capable provider.
func (d *Dispatcher) Group(ctx context.Context, groupID string, traits map[string]any) {
	defer func() {
		_ = recover()
	}()

	for _, p := range d.registry.Active() {
		g, ok := p.(provider.Grouper)
		if !ok {
			continue
		}
		if err := safeCall(func() error { return g.Group(ctx, groupID, traits) }); err != nil {
			d.reportProviderError(p.ID(), "group", "", err, nil)
		}
	}
}

// Page records a page view on every capable provider.
func (d *Dispatcher) Page(ctx context.Context, page event.PageContext) {
	defer func() {
		_ = recover()
	}()

	for _, p := range d.registry.Active() {
		pg, ok := p.(provider.Pager)
		if !ok {
			continue
		}
		if err := safeCall(func() error { return pg.Page(ctx, page) }); err != nil {
			d.reportProviderError(p.ID(), "page", "", err, nil)
		}
	}
}

// Init re-initializes every registered provider concurrently. Present
// for lifecycle symmetry; providers are already initialized on
// registration.
func (d *Dispatcher) Init(ctx context.Context) {
	d.reinitProviders(ctx)
}

// Flush fans out to every provider's optional flush concurrently,
// tolerating individual failures and awaiting all.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.fanOut(ctx, "flush", func(ctx context.Context, p provider.Provider) (error, bool) {
		f, ok := p.(provider.Flusher)
		if !ok {
			return nil, false
		}
		return f.Flush(ctx), true
	})
}

// Shutdown fans out to every provider's optional shutdown concurrently,
// tolerating individual failures and awaiting all. The dispatcher also
// detaches from the consent manager, so a shared manager can outlive it.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.consent.RemoveListener(d.consentListener)
	d.fanOut(ctx, "shutdown", func(ctx context.Context, p provider.Provider) (error, bool) {
		s, ok := p.(provider.Shutdowner)
		if !ok {
			return nil, false
		}
		return s.Shutdown(ctx), true
	})
}

// enrich merges the default context under the event context and stamps
// the timestamp if absent. The input event is never mutated.
func (d *Dispatcher) enrich(evt *event.Event) *event.Event {
	enriched := evt.Clone()

	d.mu.Lock()
	defaultCtx := d.defaultCtx
	d.mu.Unlock()

	if !defaultCtx.IsZero() || enriched.Context != nil {
		merged := defaultCtx
		if enriched.Context != nil {
			merged = defaultCtx.Merge(*enriched.Context)
		}
		enriched.Context = &merged
	}
	if !enriched.Stamped() {
		enriched.Timestamp = nowMillis()
	}
	return enriched
}

// gate reports whether dispatch may proceed: analytics consent (cached
// by UpdatedAt fingerprint) and the live online check must both pass.
// A failing or panicking consent probe reads as denied, never a crash.
func (d *Dispatcher) gate() (allowed bool, reason string) {
	if !d.consentAllowed() {
		return false, "consent"
	}
	if !d.online() {
		return false, "offline"
	}
	return true, ""
}

func (d *Dispatcher) consentAllowed() (allowed bool) {
	defer func() {
		if recover() != nil {
			allowed = false
		}
	}()

	state := d.consent.Get()

	d.mu.Lock()
	if d.cacheValid && d.cachedConsentAt == state.UpdatedAt {
		allowed = d.cachedAllowed
		d.mu.Unlock()
		return allowed
	}
	d.mu.Unlock()

	allowed = state.Allows(consent.CategoryAnalytics)

	d.mu.Lock()
	d.cachedConsentAt = state.UpdatedAt
	d.cachedAllowed = allowed
	d.cacheValid = true
	d.mu.Unlock()
	return allowed
}

// resolveTargets filters active providers through the router decision
// merged with per-call options.
func (d *Dispatcher) resolveTargets(evt *event.Event, opts []RouteDecision) []provider.Provider {
	d.mu.Lock()
	r := d.router
	d.mu.Unlock()

	decision := route(r, evt)
	for _, opt := range opts {
		decision = decision.merge(opt)
	}
	return decision.apply(d.registry.Active())
}

// trackOne delivers an event to a single provider, containing panics
// and forwarding failures so one failing sink never blocks siblings.
func (d *Dispatcher) trackOne(ctx context.Context, p provider.Provider, evt *event.Event) {
	ctx, span := d.spans.StartProviderSpan(ctx, p.ID(), "track")
	err := safeCall(func() error { return p.Track(ctx, evt) })
	d.spans.EndSpanWithError(span, err)
	if err != nil {
		d.reportProviderError(p.ID(), "track", evt.Name, err, evt)
	}
}

// deliver redelivers a queued event directly to routed providers,
// bypassing enrichment and middleware (both already ran before the
// event was queued). It returns a transient error while the gate is
// still closed so the flusher requeues instead of dropping.
func (d *Dispatcher) deliver(ctx context.Context, evt *event.Event) error {
	if allowed, reason := d.gate(); !allowed {
		return tkerrors.Transient(fmt.Errorf("delivery gated: %s", reason), "redeliver")
	}

	var firstErr error
	for _, p := range d.resolveTargets(evt, nil) {
		err := safeCall(func() error { return p.Track(ctx, evt) })
		if err != nil {
			d.reportProviderError(p.ID(), "track", evt.Name, err, evt)
			if firstErr == nil {
				firstErr = &tkerrors.DeliveryError{Provider: p.ID(), Op: "track", EventName: evt.Name, Err: err}
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) initProvider(ctx context.Context, p provider.Provider) {
	init, ok := p.(provider.Initializer)
	if !ok {
		return
	}
	opts := provider.InitOptions{
		Consent:        d.consent.Get(),
		DefaultContext: d.DefaultContext(),
	}
	if err := safeCall(func() error { return init.Init(ctx, opts) }); err != nil {
		d.reportProviderError(p.ID(), "init", "", err, nil)
	}
}

// reinitProviders fans init out across all providers concurrently.
func (d *Dispatcher) reinitProviders(ctx context.Context) {
	opts := provider.InitOptions{
		Consent:        d.consent.Get(),
		DefaultContext: d.DefaultContext(),
	}
	d.fanOut(ctx, "init", func(ctx context.Context, p provider.Provider) (error, bool) {
		init, ok := p.(provider.Initializer)
		if !ok {
			return nil, false
		}
		return init.Init(ctx, opts), true
	})
}

// fanOut runs a lifecycle call across all registered providers
// concurrently and awaits them all, so one slow provider does not
// delay the others.
func (d *Dispatcher) fanOut(ctx context.Context, op string, call func(context.Context, provider.Provider) (error, bool)) {
	var wg sync.WaitGroup
	for _, p := range d.registry.All() {
		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()
			err := safeCall(func() error {
				err, ok := call(ctx, p)
				if !ok {
					return nil
				}
				return err
			})
			if err != nil {
				d.reportProviderError(p.ID(), op, "", err, nil)
			}
		}(p)
	}
	wg.Wait()
}

func (d *Dispatcher) drop(ctx context.Context, span trace.Span, eventName, reason string) {
	d.metrics.RecordDropped(ctx, eventName, reason)
	observability.LogDrop(d.logger, eventName, reason)
	d.spans.EndSpanWithError(span, nil)
}

func (d *Dispatcher) reportProviderError(providerID, op, eventName string, err error, evt *event.Event) {
	wrapped := &tkerrors.DeliveryError{
		Provider:  providerID,
		Op:        op,
		EventName: eventName,
		Err:       err,
	}
	observability.LogProviderError(d.logger, providerID, op, err)
	d.metrics.RecordProviderError(context.Background(), providerID, op)

	d.mu.Lock()
	handler := d.onError
	d.mu.Unlock()
	if handler == nil {
		return
	}
	func() {
		defer func() {
			_ = recover()
		}()
		handler(wrapped, evt)
	}()
}

// NewFlusher creates a background flusher that redelivers queued
// events through this dispatcher whenever the online check passes.
// Returns nil when no queue is configured.
func (d *Dispatcher) NewFlusher(cfg queue.FlusherConfig) *queue.Flusher {
	if d.queue == nil {
		return nil
	}
	if cfg.Online == nil {
		cfg.Online = d.online
	}
	if cfg.Logger == nil {
		cfg.Logger = d.logger
	}
	return queue.NewFlusher(d.queue, d.deliver, cfg)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
