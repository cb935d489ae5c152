// v0
// internal/sysinfo/sysinfo.go
package sysinfo

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is one snapshot of the host the daemon runs on, served by the
// system API so the dashboard can show whether the Pi itself is healthy.
type Stats struct {
	CPULoadPercent float64  `json:"cpu_load_percent"`
	MemUsedMB      float64  `json:"mem_used_mb"`
	MemTotalMB     float64  `json:"mem_total_mb"`
	DiskUsedGB     float64  `json:"disk_used_gb"`
	DiskTotalGB    float64  `json:"disk_total_gb"`
	UptimeSeconds  uint64   `json:"uptime_seconds"`
	CPUTempC       *float64 `json:"cpu_temp_c"`
}

// Collect gathers host diagnostics. Each probe degrades independently: a
// failing source is logged and its fields stay zero, so the handler always
// has something to serve.
func Collect(ctx context.Context, log *slog.Logger, diskPath string) Stats {
	var stats Stats

	if percentages, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percentages) > 0 {
		stats.CPULoadPercent = percentages[0]
	} else if err != nil {
		log.Warn("sysinfo_cpu_failed", slog.Any("err", err))
	}

	if vmem, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		// Total - Available counts memory the kernel cannot hand back on
		// demand; vmem.Used would include the page cache.
		stats.MemUsedMB = float64(vmem.Total-vmem.Available) / 1024.0 / 1024.0
		stats.MemTotalMB = float64(vmem.Total) / 1024.0 / 1024.0
	} else {
		log.Warn("sysinfo_mem_failed", slog.Any("err", err))
	}

	path := filepath.Dir(filepath.Clean(diskPath))
	if path == "." {
		path = "/"
	}
	if usage, err := disk.UsageWithContext(ctx, path); err == nil {
		stats.DiskUsedGB = float64(usage.Used) / 1024.0 / 1024.0 / 1024.0
		stats.DiskTotalGB = float64(usage.Total) / 1024.0 / 1024.0 / 1024.0
	} else {
		log.Warn("sysinfo_disk_failed", slog.String("path", path), slog.Any("err", err))
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		stats.UptimeSeconds = uptime
	} else {
		log.Warn("sysinfo_uptime_failed", slog.Any("err", err))
	}

	if temps, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			// The SoC sensor on a Pi is exposed as cpu_thermal; fall back
			// to any cpu-named sensor elsewhere.
			if strings.Contains(strings.ToLower(t.SensorKey), "cpu") && t.Temperature > 0 {
				temp := t.Temperature
				stats.CPUTempC = &temp
				break
			}
		}
	} else {
		log.Warn("sysinfo_temps_failed", slog.Any("err", err))
	}

	return stats
}
