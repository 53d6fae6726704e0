package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics_AllMethods(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	t.Run("does not panic with valid args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordTracked(ctx, "click", 3)
			m.RecordDropped(ctx, "click", "consent")
			m.RecordProviderError(ctx, "mixpanel", "track")
			m.RecordQueueDepth(ctx, 10)
		})
	})

	t.Run("does not panic with nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordTracked(nil, "click", 0)
			m.RecordDropped(nil, "", "")
			m.RecordProviderError(nil, "", "")
			m.RecordQueueDepth(nil, -1)
		})
	})
}

func TestNoopSpanManager_Spans(t *testing.T) {
	sm := NoopSpanManager{}

	t.Run("dispatch span returns same context", func(t *testing.T) {
		ctx := context.Background()
		newCtx, span := sm.StartDispatchSpan(ctx, "click", "evt-1")

		assert.Equal(t, ctx, newCtx, "Context should be unchanged")
		assert.NotNil(t, span, "Span should not be nil")
		assert.False(t, span.IsRecording())
	})

	t.Run("provider span returns same context", func(t *testing.T) {
		ctx := context.Background()
		newCtx, span := sm.StartProviderSpan(ctx, "segment", "track")

		assert.Equal(t, ctx, newCtx, "Context should be unchanged")
		assert.False(t, span.IsRecording())
	})

	t.Run("does not panic with empty args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.StartDispatchSpan(context.Background(), "", "")
			sm.StartProviderSpan(context.Background(), "", "")
		})
	})
}

func TestNoopSpanManager_EndAndEvents(t *testing.T) {
	sm := NoopSpanManager{}

	t.Run("does not panic with nil span", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, nil)
		})
	})

	t.Run("does not panic ending span with error", func(t *testing.T) {
		_, span := sm.StartDispatchSpan(context.Background(), "click", "e1")
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(span, errors.New("test error"))
		})
	})

	t.Run("does not panic adding events", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.AddSpanEvent(context.Background(), "queued", attribute.Int("depth", 1))
			sm.AddSpanEvent(nil, "")
		})
	})
}

func TestNoopImplementations_NoSideEffects(t *testing.T) {
	// Noop implementations should be usable through a full dispatch
	// without any side effects.
	metrics := NoopMetrics{}
	spans := NoopSpanManager{}

	ctx := context.Background()

	ctx, dispatchSpan := spans.StartDispatchSpan(ctx, "wallet_connected", "evt-1")

	for i, providerID := range []string{"mixpanel", "segment"} {
		ctx, providerSpan := spans.StartProviderSpan(ctx, providerID, "track")

		var err error
		if i == 1 {
			err = errors.New("simulated error")
			metrics.RecordProviderError(ctx, providerID, "track")
		}

		spans.EndSpanWithError(providerSpan, err)
	}

	metrics.RecordTracked(ctx, "wallet_connected", 2)
	spans.EndSpanWithError(dispatchSpan, nil)
}
