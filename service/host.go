package service

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"
)

var supportedPlatforms = map[string]bool{"debian": true, "ubuntu": true}

// HostService answers questions about the machine ssm runs on.
type HostService struct{}

// Platform returns the distribution id and whether it is one ssm targets.
func (s *HostService) Platform(ctx context.Context) (string, bool) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "unknown", false
	}
	return info.Platform, supportedPlatforms[info.Platform]
}

// KernelArch is the uname machine string, e.g. x86_64.
func (s *HostService) KernelArch() string {
	arch, err := host.KernelArch()
	if err != nil || arch == "" {
		return goArchToKernel[runtime.GOARCH]
	}
	return arch
}

var goArchToKernel = map[string]string{
	"amd64": "x86_64",
	"arm64": "aarch64",
	"arm":   "armv7l",
	"386":   "i686",
}

type ProcessStats struct {
	PID    int32
	RSS    uint64
	Uptime time.Duration
}

func (s *HostService) ProcessStats(ctx context.Context, pid int32) (*ProcessStats, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	stats := &ProcessStats{PID: pid}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
		stats.RSS = mem.RSS
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		stats.Uptime = time.Since(time.UnixMilli(created)).Truncate(time.Second)
	}
	return stats, nil
}
