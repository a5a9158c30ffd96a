// Package sysinfo gathers the host snapshot sent to the companion service.
package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerGB = 1024 * 1024 * 1024

// SystemInfo is the /sync_system_info payload.
type SystemInfo struct {
	OS        string `json:"os"`
	Processor string `json:"processor"`
	RAM       string `json:"ram"`
}

// Collect builds a SystemInfo snapshot. Total memory is required; OS and
// processor fall back to runtime values when gopsutil cannot read them.
func Collect(ctx context.Context) (*SystemInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory info: %w", err)
	}

	return &SystemInfo{
		OS:        osName(ctx),
		Processor: processorName(ctx),
		RAM:       FormatRAM(vm.Total),
	}, nil
}

// FormatRAM renders a byte count as gigabytes with two decimals, e.g. "15.54 GB".
func FormatRAM(total uint64) string {
	return fmt.Sprintf("%.2f GB", float64(total)/bytesPerGB)
}

// osName returns the platform name in title case ("Linux", "Windows", "Darwin").
func osName(ctx context.Context) string {
	name := runtime.GOOS
	if info, err := host.InfoWithContext(ctx); err == nil && info.OS != "" {
		name = info.OS
	}
	return titleCase(name)
}

func processorName(ctx context.Context) string {
	infos, err := cpu.InfoWithContext(ctx)
	if err == nil {
		for _, info := range infos {
			if model := strings.TrimSpace(info.ModelName); model != "" {
				return model
			}
		}
	}
	return runtime.GOARCH
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
