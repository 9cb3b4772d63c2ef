// Package diag samples host context for failure reports, so origin trouble
// can be told apart from local saturation.
package diag

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot returns a flat key/value view of the host at call time,
// suitable for attaching to an analytics event. Sampling failures degrade
// to partial snapshots; this never returns an error.
func Snapshot() map[string]string {
	snapshot := map[string]string{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
	}

	if hostname, err := os.Hostname(); err == nil {
		snapshot["host"] = hostname
	}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		snapshot["cpu_percent"] = fmt.Sprintf("%.1f", percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot["mem_used_percent"] = fmt.Sprintf("%.1f", vm.UsedPercent)
		snapshot["mem_total_bytes"] = fmt.Sprintf("%d", vm.Total)
	}

	return snapshot
}
