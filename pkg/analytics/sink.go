package analytics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/psantana5/navloader/pkg/logging"
)

// Event is a named analytics event with a flat key/value payload
type Event struct {
	Name       string            `json:"name"`
	OccurredAt time.Time         `json:"occurred_at"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Sink accepts analytics events. Delivery is best-effort: a sink failure
// must never affect loader correctness.
type Sink interface {
	Emit(event Event)
}

// NoopSink discards all events
type NoopSink struct{}

// Emit discards the event
func (NoopSink) Emit(Event) {}

// HTTPSink posts events as JSON to an analytics endpoint. Posts are
// rate-limited so a failure storm cannot flood the endpoint; events over
// the limit are dropped.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *logging.Logger
}

// NewHTTPSink creates a sink posting to endpoint
// rps: events per second allowed through
// burst: maximum burst size
func NewHTTPSink(endpoint string, rps float64, burst int, logger *logging.Logger) *HTTPSink {
	if burst < 1 {
		burst = 1
	}
	return &HTTPSink{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Emit posts the event. All failures are logged at debug and swallowed.
func (s *HTTPSink) Emit(event Event) {
	if !s.limiter.Allow() {
		s.logger.Debug("Analytics event dropped by rate limit", map[string]interface{}{
			"event": event.Name,
		})
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Debug("Failed to marshal analytics event", map[string]interface{}{
			"event": event.Name,
			"error": err.Error(),
		})
		return
	}

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(data))
	if err != nil {
		s.logger.Debug("Failed to post analytics event", map[string]interface{}{
			"event": event.Name,
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Debug("Analytics endpoint rejected event", map[string]interface{}{
			"event":  event.Name,
			"status": resp.StatusCode,
		})
	}
}
