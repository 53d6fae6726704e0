package event_test

import (
	"testing"

	"github.com/randalmurphal/telemetrykit/pkg/telemetry/event"
)

type walletConnected struct {
	ChainID string `json:"chain_id"`
	Wallet  string `json:"wallet"`
}

func (walletConnected) EventName() string { return "wallet_connected" }

func TestNewTypedPayload(t *testing.T) {
	evt := event.New(walletConnected{ChainID: "137", Wallet: "metamask"})

	if evt.Name != "wallet_connected" {
		t.Errorf("expected name from payload type, got %s", evt.Name)
	}
	if evt.Payload["chain_id"] != "137" {
		t.Errorf("expected flattened payload, got %v", evt.Payload)
	}
	if evt.ID == "" {
		t.Error("expected auto-generated event ID")
	}
	if evt.Timestamp == 0 {
		t.Error("expected timestamp to be stamped")
	}
}

func TestNewAnyOptions(t *testing.T) {
	ctx := event.Context{SessionID: "s-1"}
	evt := event.NewAny("page_view", map[string]any{"path": "/home"},
		event.WithEventID("evt-42"),
		event.WithTimestamp(1234),
		event.WithContext(ctx),
	)

	if evt.ID != "evt-42" {
		t.Errorf("expected explicit ID, got %s", evt.ID)
	}
	if evt.Timestamp != 1234 {
		t.Errorf("expected explicit timestamp, got %d", evt.Timestamp)
	}
	if evt.Context == nil || evt.Context.SessionID != "s-1" {
		t.Errorf("expected context attached, got %+v", evt.Context)
	}
}

func TestContextMerge(t *testing.T) {
	defaults := event.Context{
		UserID: "u-1",
		Locale: "en-US",
		Source: event.SourceWeb,
	}
	override := event.Context{
		UserID: "u-2",
		Page:   &event.PageContext{Path: "/checkout"},
	}

	merged := defaults.Merge(override)

	if merged.UserID != "u-2" {
		t.Errorf("expected override to win, got %s", merged.UserID)
	}
	if merged.Locale != "en-US" {
		t.Errorf("expected unspecified key to fall through, got %s", merged.Locale)
	}
	if merged.Source != event.SourceWeb {
		t.Errorf("expected source to fall through, got %s", merged.Source)
	}
	if merged.Page == nil || merged.Page.Path != "/checkout" {
		t.Errorf("expected page from override, got %+v", merged.Page)
	}
}

func TestContextMergeTestFlagSticky(t *testing.T) {
	defaults := event.Context{Test: true}
	merged := defaults.Merge(event.Context{})
	if !merged.Test {
		t.Error("expected test flag to survive merge with zero override")
	}
}

func TestClone(t *testing.T) {
	original := event.NewAny("signup", map[string]any{"plan": "free"},
		event.WithContext(event.Context{UserID: "u-1"}),
	)

	clone := original.Clone()
	clone.Payload["plan"] = "pro"
	clone.Context.UserID = "u-2"

	if original.Payload["plan"] != "free" {
		t.Error("clone payload mutation leaked into original")
	}
	if original.Context.UserID != "u-1" {
		t.Error("clone context mutation leaked into original")
	}
}

func TestCloneNil(t *testing.T) {
	var evt *event.Event
	if evt.Clone() != nil {
		t.Error("expected nil clone of nil event")
	}
}

func TestStamped(t *testing.T) {
	evt := event.NewAny("x", nil, event.WithTimestamp(0))
	if evt.Stamped() {
		t.Error("expected zero timestamp to be unstamped")
	}
	evt.Timestamp = 99
	if !evt.Stamped() {
		t.Error("expected non-zero timestamp to be stamped")
	}
}
