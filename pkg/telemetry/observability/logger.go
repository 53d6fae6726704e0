// Package observability provides structured logging, metrics, and
// tracing for the telemetry dispatch core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// LogDispatch logs a successful fan-out at debug level.
func LogDispatch(logger *slog.Logger, eventName string, providerCount int) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("event", eventName),
		slog.Int("providers", providerCount),
	)
}

// LogDrop logs an event that was gated out of delivery.
func LogDrop(logger *slog.Logger, eventName, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("event", eventName),
		slog.String("reason", reason),
	)
}

// LogProviderError logs a provider failure (non-fatal, isolated).
func LogProviderError(logger *slog.Logger, providerID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("provider call failed",
		slog.String("provider", providerID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogProviderRegistered logs provider registration with its probed
// capabilities.
func LogProviderRegistered(logger *slog.Logger, providerID string, capabilities []string) {
	if logger == nil {
		return
	}
	logger.Info("provider registered",
		slog.String("provider", providerID),
		slog.Any("capabilities", capabilities),
	)
}

// LogConsentChange logs a consent update.
func LogConsentChange(logger *slog.Logger, analyticsAllowed bool, updatedAt int64) {
	if logger == nil {
		return
	}
	logger.Info("consent updated",
		slog.Bool("analytics", analyticsAllowed),
		slog.Int64("updated_at", updatedAt),
	)
}

// LogQueueWarning logs an offline-queue degradation (non-fatal).
func LogQueueWarning(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("offline queue degraded",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
