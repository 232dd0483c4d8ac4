// Package service provides the high-level operations behind the webdrivers
// commands.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/binary"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/lock"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/log"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// DriverRegistry looks up drivers by name.
type DriverRegistry interface {
	Lookup(name string) (*binary.Driver, error)
}

// Provisioner turns a request into an executable on disk.
type Provisioner interface {
	Provision(ctx context.Context, d *binary.Driver, req binary.Request) (binary.Resolved, error)
}

// Clock provides time operations. This interface enables deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// ProvisionService resolves a driver's properties and provisions it while
// holding the per-driver cache lock.
type ProvisionService struct {
	drivers     DriverRegistry
	provisioner Provisioner
	detector    platform.Detector
	clock       Clock
	lockDir     string
	lockOpts    []lock.Option
	logger      log.Logger
}

// NewProvisionService creates a new provision service with dependency injection.
// lockDir is normally the cache root; a nil logger means log.Default().
func NewProvisionService(
	drivers DriverRegistry,
	provisioner Provisioner,
	detector platform.Detector,
	clock Clock,
	lockDir string,
	logger log.Logger,
) *ProvisionService {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ProvisionService{
		drivers:     drivers,
		provisioner: provisioner,
		detector:    detector,
		clock:       clock,
		lockDir:     lockDir,
		logger:      logger,
	}
}

// WithLockOptions sets the options used when acquiring the cache lock.
func (s *ProvisionService) WithLockOptions(opts ...lock.Option) *ProvisionService {
	s.lockOpts = opts
	return s
}

// ProvisionRequest names a driver and where its properties come from.
type ProvisionRequest struct {
	Driver     string
	Properties binary.PropertySource
}

// ProvisionResult describes a provisioned driver.
type ProvisionResult struct {
	Driver         string
	SystemProperty string
	Strategy       binary.Strategy
	Platform       *platform.Info
	Resolved       binary.Resolved
	Elapsed        time.Duration
}

// Provision provisions one driver.
func (s *ProvisionService) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := s.clock.Now()

	d, err := s.drivers.Lookup(req.Driver)
	if err != nil {
		return nil, err
	}

	if s.detector == nil {
		return nil, errors.New("no platform detector configured")
	}
	info, err := s.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	breq := binary.ResolveRequest(req.Properties, d, info)
	logger := s.logger.With("driver", d.Name, "strategy", breq.Strategy().String(), "platform", info.String())
	logger.Debug("resolved request", "version", breq.Version, "url", breq.URL, "local_path", breq.LocalPath)

	// An existing local path never touches the cache
	if !isRegularFile(breq.LocalPath) {
		subdir := d.CacheSubdir
		if subdir == "" {
			subdir = d.Name
		}
		l, err := lock.AcquireLock(ctx, filepath.Join(s.lockDir, subdir), s.lockOpts...)
		if err != nil {
			return nil, fmt.Errorf("lock %s cache: %w", d.Name, err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				logger.Warn("failed to release lock", "error", err)
			}
		}()
	}

	resolved, err := s.provisioner.Provision(ctx, d, breq)
	if err != nil {
		return nil, fmt.Errorf("provision %s: %w", d.Name, err)
	}

	return &ProvisionResult{
		Driver:         d.Name,
		SystemProperty: d.SystemProperty,
		Strategy:       breq.Strategy(),
		Platform:       info,
		Resolved:       resolved,
		Elapsed:        s.clock.Now().Sub(start),
	}, nil
}

func isRegularFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
