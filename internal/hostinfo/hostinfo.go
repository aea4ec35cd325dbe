// Package hostinfo samples host CPU and memory via gopsutil. Used for the
// pre-ramp headroom log and the /status endpoint; nothing in the core
// depends on it.
package hostinfo

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is one point-in-time host resource reading.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	CPUThreads      int       `json:"cpu_threads"`
	CPUUsagePercent float64   `json:"cpu_usage_percent"`
	MemTotalBytes   uint64    `json:"mem_total_bytes"`
	MemFreeBytes    uint64    `json:"mem_free_bytes"`
	MemUsedPercent  float64   `json:"mem_used_percent"`
}

// Collect samples the host. A partial failure degrades the snapshot
// instead of failing it: callers only use this for display.
func Collect() Snapshot {
	s := Snapshot{Timestamp: time.Now()}

	if counts, err := cpu.Counts(true); err == nil {
		s.CPUThreads = counts
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUUsagePercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotalBytes = vm.Total
		s.MemFreeBytes = vm.Available
		s.MemUsedPercent = vm.UsedPercent
	}
	return s
}

// FreeMemoryMB returns available memory in whole megabytes.
func (s Snapshot) FreeMemoryMB() uint64 {
	return s.MemFreeBytes / (1 << 20)
}

// FormatRAM renders a byte count as GB with one decimal.
func FormatRAM(bytes uint64) string {
	return fmt.Sprintf("%.1f GB", float64(bytes)/(1<<30))
}
