package readiness

import (
	"testing"
	"time"
)

func TestReadyStateString(t *testing.T) {
	tests := []struct {
		state    ReadyState
		expected string
	}{
		{StateLoading, "loading"},
		{StateInteractive, "interactive"},
		{StateComplete, "complete"},
		{ReadyState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("ReadyState(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestStructureAvailable(t *testing.T) {
	if StateLoading.StructureAvailable() {
		t.Error("loading should not report structure available")
	}
	if !StateInteractive.StructureAvailable() {
		t.Error("interactive should report structure available")
	}
	if !StateComplete.StructureAvailable() {
		t.Error("complete should report structure available")
	}
}

func TestReadyChannelClosedWhenAlreadyPastLoading(t *testing.T) {
	doc := NewSimDocument(StateInteractive)

	select {
	case <-doc.Ready():
		// Expected: channel already closed
	default:
		t.Error("Ready channel should be closed for an already-ready document")
	}
}

func TestSignalReadyFiresOnce(t *testing.T) {
	doc := NewSimDocument(StateLoading)

	select {
	case <-doc.Ready():
		t.Fatal("Ready channel should not be closed before SignalReady")
	default:
	}

	doc.SignalReady()

	select {
	case <-doc.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready channel should be closed after SignalReady")
	}

	if doc.ReadyState() != StateInteractive {
		t.Errorf("Expected interactive state after signal, got %v", doc.ReadyState())
	}

	// Duplicate signal from a quirky host must be absorbed
	doc.SignalReady()
}

func TestLookup(t *testing.T) {
	doc := NewSimDocument(StateInteractive)

	if doc.Lookup("#site-nav") {
		t.Error("Lookup should fail before target is added")
	}

	doc.AddTarget("#site-nav")

	if !doc.Lookup("#site-nav") {
		t.Error("Lookup should succeed after target is added")
	}
	if doc.Lookup("#footer") {
		t.Error("Lookup should fail for a different selector")
	}
}
