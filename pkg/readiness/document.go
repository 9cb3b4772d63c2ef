package readiness

import (
	"sync"
)

// ReadyState represents the structural readiness of the host document
type ReadyState int

const (
	// StateLoading means the document structure is still being parsed
	StateLoading ReadyState = iota
	// StateInteractive means the structure is parsed and available for manipulation
	StateInteractive
	// StateComplete means the document and its subresources have finished loading
	StateComplete
)

// String returns string representation of the ready state
func (rs ReadyState) String() string {
	switch rs {
	case StateLoading:
		return "loading"
	case StateInteractive:
		return "interactive"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// StructureAvailable reports whether the document is past the loading phase
func (rs ReadyState) StructureAvailable() bool {
	return rs > StateLoading
}

// Document is the host document collaborator. It exposes a synchronously
// readable readiness state, a one-shot readiness signal, and lookup of the
// insertion target.
type Document interface {
	// ReadyState returns the current structural readiness
	ReadyState() ReadyState

	// Ready returns a channel that is closed exactly once when the
	// document leaves the loading phase. If the document is already
	// past loading, the returned channel is already closed.
	Ready() <-chan struct{}

	// Lookup reports whether an insertion target matching the selector
	// exists in the document structure
	Lookup(selector string) bool
}

// SimDocument is an in-process Document implementation used by the CLI
// and by tests. The readiness signal is consumed through channel close,
// so duplicate SignalReady calls from the host are absorbed.
type SimDocument struct {
	mu        sync.RWMutex
	state     ReadyState
	readyChan chan struct{}
	once      sync.Once
	targets   map[string]bool
}

// NewSimDocument creates a document in the given initial state
func NewSimDocument(initial ReadyState) *SimDocument {
	d := &SimDocument{
		state:     initial,
		readyChan: make(chan struct{}),
		targets:   make(map[string]bool),
	}
	if initial.StructureAvailable() {
		d.once.Do(func() { close(d.readyChan) })
	}
	return d
}

// ReadyState returns the current structural readiness
func (d *SimDocument) ReadyState() ReadyState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.state
}

// Ready returns the one-shot readiness channel
func (d *SimDocument) Ready() <-chan struct{} {
	return d.readyChan
}

// Lookup reports whether the selector has been added as a target
func (d *SimDocument) Lookup(selector string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.targets[selector]
}

// AddTarget registers an insertion target in the simulated structure
func (d *SimDocument) AddTarget(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.targets[selector] = true
}

// SignalReady transitions the document out of the loading phase and fires
// the readiness signal. Safe to call more than once; only the first call
// has any effect.
func (d *SimDocument) SignalReady() {
	d.mu.Lock()
	if d.state == StateLoading {
		d.state = StateInteractive
	}
	d.mu.Unlock()

	d.once.Do(func() { close(d.readyChan) })
}
