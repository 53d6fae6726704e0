package errors_test

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	telerrors "github.com/randalmurphal/telemetrykit/pkg/telemetry/errors"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want telerrors.Category
	}{
		{"nil", nil, telerrors.CategoryPermanent},
		{"unknown", stderrors.New("mystery"), telerrors.CategoryPermanent},
		{"explicit transient", telerrors.Transient(stderrors.New("x"), ""), telerrors.CategoryTransient},
		{"explicit permanent", telerrors.Permanent(stderrors.New("x"), ""), telerrors.CategoryPermanent},
		{"http 429", &telerrors.HTTPError{StatusCode: 429}, telerrors.CategoryTransient},
		{"http 503", &telerrors.HTTPError{StatusCode: 503}, telerrors.CategoryTransient},
		{"http 500", &telerrors.HTTPError{StatusCode: 500}, telerrors.CategoryTransient},
		{"http 401", &telerrors.HTTPError{StatusCode: 401}, telerrors.CategoryPermanent},
		{"http 400", &telerrors.HTTPError{StatusCode: 400}, telerrors.CategoryPermanent},
		{"http 404", &telerrors.HTTPError{StatusCode: 404}, telerrors.CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := telerrors.Categorize(tt.err); got != tt.want {
				t.Errorf("Categorize(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestDeliveryErrorUnwrapsToCategory(t *testing.T) {
	inner := &telerrors.HTTPError{StatusCode: 503, Message: "unavailable"}
	err := &telerrors.DeliveryError{
		Provider:  "mixpanel",
		Op:        "track",
		EventName: "signup",
		Err:       inner,
	}

	if !telerrors.IsRetryable(err) {
		t.Error("expected delivery error wrapping 503 to be retryable")
	}
	if !strings.Contains(err.Error(), "mixpanel") || !strings.Contains(err.Error(), "signup") {
		t.Errorf("expected provider and event in message, got %q", err.Error())
	}
	if !stderrors.Is(err, inner) {
		t.Error("expected Unwrap to reach the inner error")
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := telerrors.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1.0,
	}

	result := telerrors.WithRetry(cfg, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", telerrors.Transient(stderrors.New("flaky"), "")
		}
		return "ok", nil
	})

	if result.Err != nil {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if result.Value != "ok" || result.Attempts != 3 {
		t.Errorf("expected ok after 3 attempts, got %q after %d", result.Value, result.Attempts)
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	attempts := 0
	result := telerrors.WithRetry(telerrors.DefaultRetry, func() (int, error) {
		attempts++
		return 0, telerrors.Permanent(stderrors.New("bad creds"), "")
	})

	if result.Err == nil {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt for a permanent error, got %d", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	cfg := telerrors.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1.0,
	}

	attempts := 0
	result := telerrors.WithRetry(cfg, func() (int, error) {
		attempts++
		return 0, telerrors.Transient(stderrors.New("down"), "")
	})

	if result.Err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != 2 || result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d (%d reported)", attempts, result.Attempts)
	}
}

func TestNoRetry(t *testing.T) {
	attempts := 0
	result := telerrors.WithRetry(telerrors.NoRetry, func() (int, error) {
		attempts++
		return 0, telerrors.Transient(stderrors.New("down"), "")
	})

	if attempts != 1 {
		t.Errorf("expected exactly one attempt, got %d", attempts)
	}
	if result.Err == nil {
		t.Error("expected error to surface")
	}
}
