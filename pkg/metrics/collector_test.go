package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/psantana5/navloader/pkg/models"
)

func TestCollectorDump(t *testing.T) {
	c := NewCollector()

	attempt := &models.SourceAttempt{
		Tier:      models.TierPrimary,
		Status:    models.AttemptPending,
		StartedAt: time.Now().Add(-100 * time.Millisecond),
	}
	attempt.Resolve(models.AttemptSucceeded, "")

	c.RecordAttempt(attempt)
	c.RecordFallback()
	c.RecordInit("completed")

	dump, err := c.Dump()
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	expected := []string{
		`navload_source_attempts_total{status="succeeded",tier="primary"} 1`,
		"navload_fallbacks_total 1",
		`navload_init_total{result="completed"} 1`,
		"navload_load_duration_seconds_bucket",
	}
	for _, want := range expected {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump missing %q:\n%s", want, dump)
		}
	}
}
