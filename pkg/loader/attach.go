package loader

import (
	"errors"

	"github.com/psantana5/navloader/pkg/logging"
	"github.com/psantana5/navloader/pkg/readiness"
)

// ErrTargetMissing indicates the insertion target was absent at execution
// time. The routine exits cleanly and the page view still completes.
var ErrTargetMissing = errors.New("insertion target missing")

// AttachRoutine returns the default initialization routine: verify the
// insertion target exists and hand the payload to the host for attachment.
// A missing target is a diagnostic, never a thrown failure.
func AttachRoutine(doc readiness.Document, selector string, logger *logging.Logger) InitRoutine {
	return func(payload []byte) error {
		if !doc.Lookup(selector) {
			logger.Warn("Insertion target not found, navigation has nothing to attach to", map[string]interface{}{
				"selector": selector,
			})
			return ErrTargetMissing
		}

		logger.Debug("Attaching navigation payload", map[string]interface{}{
			"selector": selector,
			"bytes":    len(payload),
		})
		return nil
	}
}
