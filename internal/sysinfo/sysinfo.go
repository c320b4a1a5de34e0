// Package sysinfo reports host and disk information shown on the console
// status screen and used for pre-backup space checks.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrInsufficientSpace is returned when a filesystem has less free space
// than required.
var ErrInsufficientSpace = errors.New("insufficient disk space")

// DiskUsage describes the filesystem holding a path.
type DiskUsage struct {
	Path        string  `json:"path"`
	Filesystem  string  `json:"filesystem"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// HostSummary is the overview printed on the status screen.
type HostSummary struct {
	Hostname    string    `json:"hostname"`
	Platform    string    `json:"platform"`
	Uptime      uint64    `json:"uptime"`
	LoadAvg     []float64 `json:"load_avg"`
	MemTotal    uint64    `json:"mem_total"`
	MemUsed     uint64    `json:"mem_used"`
	MemUsedPerc float64   `json:"mem_used_percent"`
}

// Disk returns usage of the filesystem that contains path.
func Disk(ctx context.Context, path string) (*DiskUsage, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, err
	}
	return &DiskUsage{
		Path:        path,
		Filesystem:  usage.Fstype,
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// EnsureFree fails with ErrInsufficientSpace when the filesystem holding
// path has fewer than min free bytes.
func EnsureFree(ctx context.Context, path string, min uint64) error {
	if min == 0 {
		return nil
	}
	usage, err := Disk(ctx, path)
	if err != nil {
		return err
	}
	if usage.Free < min {
		return fmt.Errorf("%w: %d bytes free on %s, %d required", ErrInsufficientSpace, usage.Free, path, min)
	}
	return nil
}

// Host collects a best-effort summary; fields whose probe fails stay empty.
func Host(ctx context.Context) *HostSummary {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	summary := &HostSummary{}
	if info, err := host.InfoWithContext(ctx); err == nil {
		summary.Hostname = info.Hostname
		summary.Platform = info.Platform + " " + info.PlatformVersion
		summary.Uptime = info.Uptime
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		summary.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		summary.MemTotal = vm.Total
		summary.MemUsed = vm.Used
		summary.MemUsedPerc = vm.UsedPercent
	}
	return summary
}
