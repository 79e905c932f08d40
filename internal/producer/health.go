package producer

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var startedAt = time.Now()

// Health is the /api/health payload: coarse host metrics for the
// console's system-status panel.
type Health struct {
	Status         string  `json:"status"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	Goroutines     int     `json:"goroutines"`
}

// SnapshotHealth collects current host metrics. Metric failures degrade
// to zero values rather than failing the endpoint.
func SnapshotHealth() Health {
	h := Health{
		Status:        "online",
		UptimeSeconds: time.Since(startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		h.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.MemUsedPercent = vm.UsedPercent
	}

	return h
}
