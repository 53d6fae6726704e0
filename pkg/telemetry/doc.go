/*
Package telemetry provides a client-side analytics dispatch core:
typed events fan out through a middleware pipeline to pluggable
provider sinks, gated by user consent and network reachability.

# Overview

telemetry is a Go library for product instrumentation. Application
code constructs an event and hands it to a Dispatcher; the dispatcher
enriches it with default context, runs the middleware chain, checks
consent and the online gate, resolves per-event routing, and delivers
it to each selected provider. Provider failures are isolated and
reported through an error callback - nothing in the dispatch path ever
returns an error or panics back to product code.

Key properties:
  - Capability probing: providers implement only what they support
  - Default-deny consent with an always-on necessary category
  - Fail-open middleware: a panicking transformer passes through
  - Durable offline queue with FIFO drain, TTL, and size bounds
  - OpenTelemetry integration for observability

# Basic Usage

Build a dispatcher, register providers, and track:

	d := telemetry.NewBuilder().
	    AddProvider(mixpanel).
	    AddProvider(amplitude).
	    WithConsent(map[consent.Category]bool{
	        consent.CategoryAnalytics: true,
	    }).
	    WithDefaultContext(event.Context{
	        Source:     event.SourceWeb,
	        AppVersion: "2.4.0",
	    }).
	    WithOnError(func(err error, evt *event.Event) {
	        log.Printf("delivery failed: %v", err)
	    }).
	    Build()

	d.Track(ctx, event.NewAny("wallet_connected", map[string]any{
	    "chain_id": "1",
	}))

# Typed Events

Tie a payload type to its event name for compile-time safety:

	type WalletConnected struct {
	    ChainID string `json:"chain_id"`
	    Wallet  string `json:"wallet"`
	}

	func (WalletConnected) EventName() string { return "wallet_connected" }

	d.Track(ctx, event.New(WalletConnected{ChainID: "137", Wallet: "metamask"}))

# Consent

Consent defaults to fully denied. Granting analytics re-initializes
every provider so vendor-side consent flags update synchronously:

	d.SetConsent(map[consent.Category]bool{
	    consent.CategoryAnalytics: true,
	})

While analytics consent is denied, Track drops (or queues, see below)
without reaching any provider.

# Routing

A router narrows which providers receive each event; call-site options
narrow further. Includes are whitelists, excludes from both sources
are unioned:

	d.SetRouter(func(evt *event.Event) telemetry.RouteDecision {
	    if evt.Context != nil && evt.Context.Test {
	        return telemetry.RouteDecision{Include: []string{"debug-sink"}}
	    }
	    return telemetry.RouteDecision{}
	})

	d.Track(ctx, evt, telemetry.RouteDecision{Exclude: []string{"mixpanel"}})

# Offline Queue

With a queue configured, gated events (offline or unconsented) are
persisted instead of dropped, and a flusher redelivers them when the
gate opens:

	store, _ := queue.NewSQLiteStore("./telemetry.db")
	defer store.Close()

	d := telemetry.NewBuilder().
	    AddProvider(mixpanel).
	    WithQueueStore(store).
	    WithOnline(isOnline).
	    Build()

	flusher := d.NewFlusher(queue.DefaultFlusherConfig)
	flusher.Start(ctx)
	defer flusher.Stop()

# Observability

Structured logs use slog; metrics and traces use the global
OpenTelemetry providers:

	d := telemetry.NewBuilder().
	    WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))).
	    WithMetrics(observability.NewMetricsRecorder()).
	    WithSpans(observability.NewSpanManager()).
	    Build()

Metrics: telemetry.events.tracked, telemetry.events.dropped,
telemetry.provider.errors, telemetry.queue.depth.
Traces: telemetry.dispatch > telemetry.provider.{id} spans.

# Thread Safety

  - Dispatcher IS safe for concurrent use
  - Builder is NOT safe for concurrent use during construction
  - Events are treated as immutable once handed to Track

# Subpackages

  - event: event model, context, and the validation catalog
  - consent: consent categories, state, and change listeners
  - middleware: the transformation chain and built-in transformers
  - provider: the provider contract, capability probing, and registry
  - queue: the persistent offline queue, stores, and flusher
  - errors: delivery error classification and retry support
  - config: file-backed configuration and dispatcher settings
  - observability: logging, metrics, and tracing helpers
*/
package telemetry
