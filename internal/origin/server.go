// Package origin implements a stub script host with injectable latency and
// failure rate, used for fallback drills and tests.
package origin

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/psantana5/navloader/pkg/logging"
)

// Options configures the injected behavior of the stub origin
type Options struct {
	Latency     time.Duration // Artificial delay before responding
	FailureRate float64       // Probability [0,1] of responding 503
	Payload     []byte        // Script body served at /nav.js
}

// Server is a stub script origin
type Server struct {
	mu     sync.RWMutex
	opts   Options
	logger *logging.Logger
	router *mux.Router

	served int64
	failed int64
}

// NewServer creates a stub origin with the given injected behavior
func NewServer(opts Options, logger *logging.Logger) *Server {
	if len(opts.Payload) == 0 {
		opts.Payload = []byte("(function(){/* nav bundle */})();")
	}

	s := &Server{
		opts:   opts,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/nav.js", s.ServeBundle).Methods("GET")
	s.router.HandleFunc("/health", s.Health).Methods("GET")

	return s
}

// Router returns the underlying router so callers can mount extra
// handlers (e.g. a /metrics endpoint)
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetOptions swaps the injected behavior at runtime
func (s *Server) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(opts.Payload) == 0 {
		opts.Payload = s.opts.Payload
	}
	s.opts = opts
}

// ServeBundle serves the script payload, applying injected latency and
// failure rate first
func (s *Server) ServeBundle(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	opts := s.opts
	s.mu.RUnlock()

	if opts.Latency > 0 {
		select {
		case <-time.After(opts.Latency):
		case <-r.Context().Done():
			return
		}
	}

	if opts.FailureRate > 0 && rand.Float64() < opts.FailureRate {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		http.Error(w, "injected failure", http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	s.served++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/javascript")
	w.Write(opts.Payload)
}

// Health reports origin liveness and serve counters
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       "ok",
		"served":       s.served,
		"failed":       s.failed,
		"latency_ms":   s.opts.Latency.Milliseconds(),
		"failure_rate": s.opts.FailureRate,
	})
}
