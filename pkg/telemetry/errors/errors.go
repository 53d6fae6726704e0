// Package errors provides error classification and retry support for
// event delivery.
//
// Nothing in the dispatch core propagates an error back to product
// code; these types exist so the error callback, logs, and the offline
// queue's redelivery loop can tell transient sink failures apart from
// permanent ones.
package errors

import (
	"errors"
	"fmt"
)

// Category represents how a delivery error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, the network being down.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: invalid credentials, a sink rejecting the payload.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// DeliveryError wraps a provider failure with its origin.
type DeliveryError struct {
	// Provider is the failing provider's ID.
	Provider string

	// Op is the operation that failed: track, identify, group, page,
	// init, flush, or shutdown.
	Op string

	// EventName is set for track failures.
	EventName string

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.EventName != "" {
		return fmt.Sprintf("provider %s: %s %q: %s", e.Provider, e.Op, e.EventName, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// HTTPError represents a sink-side HTTP failure with status code.
// Vendor adapters can return it to get status-aware retry behavior.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// CategorizedError wraps an error with an explicit category.
type CategorizedError struct {
	Err      error
	Category Category
	Context  string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Transient marks an error as retryable.
func Transient(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: context}
}

// Permanent marks an error as not retryable.
func Permanent(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: context}
}

// Categorize determines how a delivery error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) && deliveryErr.Err != nil {
		return Categorize(deliveryErr.Err)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 429, 503, 504:
			return CategoryTransient
		case 400, 401, 403:
			return CategoryPermanent
		default:
			if httpErr.StatusCode >= 500 {
				return CategoryTransient
			}
			return CategoryPermanent
		}
	}

	// Unknown errors are permanent (fail safe).
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
