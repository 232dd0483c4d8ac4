package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/config"
)

// PinService records driver versions in the project-local override file.
type PinService struct {
	drivers   DriverRegistry
	localPath string
}

// NewPinService creates a pin service writing to localPath.
func NewPinService(drivers DriverRegistry, localPath string) *PinService {
	return &PinService{drivers: drivers, localPath: localPath}
}

// PinResult reports what was written.
type PinResult struct {
	Property string
	Version  string
	Path     string
}

// Pin sets the version property of driver to version. An empty version
// removes the pin. Versions must be exact versions or semver constraints.
func (s *PinService) Pin(ctx context.Context, driver, version string) (*PinResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := s.drivers.Lookup(driver)
	if err != nil {
		return nil, err
	}
	if d.Properties.Version == "" {
		return nil, fmt.Errorf("driver %s has no version property", d.Name)
	}

	version = strings.TrimSpace(version)
	if version != "" {
		if _, err := semver.NewConstraint(version); err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", version, err)
		}
	}

	if err := config.SetLocalProperty(s.localPath, d.Properties.Version, version); err != nil {
		return nil, fmt.Errorf("pin %s: %w", d.Name, err)
	}

	return &PinResult{
		Property: d.Properties.Version,
		Version:  version,
		Path:     s.localPath,
	}, nil
}
