package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture,
// and gopsutil for Linux distribution details.
//
// If gopsutil fails to detect the distribution, the distro fields stay empty
// and detection still succeeds. A cancelled context is a hard failure.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	return detect(ctx, runtime.GOOS, runtime.GOARCH)
}

func detect(ctx context.Context, goos, goarch string) (*Info, error) {
	info := &Info{
		OS:      goos,
		ArchRaw: goarch,
	}

	arch, err := normalizeArch(goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if goos != "linux" {
		return info, nil
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	platform = normalizePlatform(platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
	}

	return info, nil
}

// Parse builds an Info from an "os/arch" identifier such as "linux/amd64"
// or "windows/386". Architecture aliases like x86_64 are accepted.
func Parse(id string) (*Info, error) {
	goos, goarch, ok := strings.Cut(id, "/")
	if !ok || goos == "" || goarch == "" {
		return nil, fmt.Errorf("invalid platform %q (expected os/arch)", id)
	}

	goos = normalizePlatform(goos)
	switch goos {
	case "linux", "darwin", "windows":
	case "macos", "osx":
		goos = "darwin"
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}

	arch, err := normalizeArch(normalizePlatform(goarch))
	if err != nil {
		return nil, err
	}

	return &Info{OS: goos, Arch: arch, ArchRaw: goarch}, nil
}
