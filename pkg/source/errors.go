package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/psantana5/navloader/pkg/models"
)

// ErrAllSourcesFailed indicates both configured sources were exhausted.
// The page then continues without navigation; this is degraded, not fatal.
var ErrAllSourcesFailed = errors.New("all script sources failed")

// ErrorKind categorizes load failures for handling strategy
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindNetwork           // Connection-level failure
	ErrorKindStatus            // Non-2xx HTTP response
	ErrorKindTimeout           // Did not resolve within budget
	ErrorKindPayload           // Response body empty or unreadable
)

// String returns string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNetwork:
		return "network"
	case ErrorKindStatus:
		return "status"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// LoadError wraps a failed load attempt with tier and source context
type LoadError struct {
	Kind      ErrorKind
	Tier      models.SourceTier
	URL       string
	Message   string
	Err       error
	Timestamp time.Time
}

// Error implements error interface
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s load from %s failed: %s: %v", e.Tier, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("%s load from %s failed: %s", e.Tier, e.URL, e.Message)
}

// Unwrap implements error unwrapping
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new load error
func NewLoadError(kind ErrorKind, tier models.SourceTier, url, message string, err error) *LoadError {
	return &LoadError{
		Kind:      kind,
		Tier:      tier,
		URL:       url,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// IsTimeout reports whether the error represents a source timeout
func IsTimeout(err error) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind == ErrorKindTimeout
	}
	return false
}
