// Package drivers holds the table of supported WebDriver binaries. Each entry
// is a binary.Driver value: property names, cache layout, release source and
// archive layout. Supporting another tool means adding an entry here.
package drivers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/binary"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/source"
)

// Driver names
const (
	PhantomJS   = "phantomjs"
	GeckoDriver = "geckodriver"
)

// UnsupportedPlatformError reports a platform a driver publishes no build for.
type UnsupportedPlatformError struct {
	Driver   string
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("%s has no release for platform %s", e.Driver, e.Platform)
}

// UnknownDriverError reports a driver name missing from the registry.
type UnknownDriverError struct {
	Name  string
	Known []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown driver %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry looks up drivers by name.
type Registry struct {
	drivers map[string]*binary.Driver
}

// NewRegistry returns a registry holding every supported driver, using
// client for release lookups.
func NewRegistry(client *source.Client) *Registry {
	r := &Registry{drivers: make(map[string]*binary.Driver)}
	for _, d := range []*binary.Driver{
		NewPhantomJS(client),
		NewGeckoDriver(client),
	} {
		r.drivers[d.Name] = d
	}
	return r
}

// Lookup returns the driver called name. Matching ignores case.
func (r *Registry) Lookup(name string) (*binary.Driver, error) {
	if d, ok := r.drivers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return nil, &UnknownDriverError{Name: name, Known: r.Names()}
}

// Names returns the registered driver names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered drivers sorted by name.
func (r *Registry) All() []*binary.Driver {
	names := r.Names()
	all := make([]*binary.Driver, 0, len(names))
	for _, name := range names {
		all = append(all, r.drivers[name])
	}
	return all
}

// NewPhantomJS describes PhantomJS. Versions come from the GitHub tags of
// ariya/phantomjs; archives are hosted on Bitbucket and unpack to
// phantomjs-<version>-<platform>/bin/phantomjs.
func NewPhantomJS(client *source.Client) *binary.Driver {
	return &binary.Driver{
		Name:           PhantomJS,
		BinaryName:     "phantomjs",
		CacheSubdir:    "phantomjs",
		Properties:     binary.PropertyNamesFor("phantomjs"),
		SystemProperty: "phantomjs.binary.path",
		Locate:         binary.LocateNestedBin,
		Source: &source.TaggedDownloads{
			Client: client,
			Owner:  "ariya",
			Repo:   "phantomjs",
			URL:    phantomJSURL,
		},
	}
}

const phantomJSDownloads = "https://bitbucket.org/ariya/phantomjs/downloads/"

func phantomJSURL(version string, p *platform.Info) (string, error) {
	var suffix string
	switch {
	case p.IsLinux() && p.Arch == platform.ArchAMD64:
		suffix = "linux-x86_64.tar.bz2"
	case p.IsLinux() && p.Arch == platform.Arch386:
		suffix = "linux-i686.tar.bz2"
	case p.IsMacOS():
		suffix = "macosx.zip"
	case p.IsWindows():
		suffix = "windows.zip"
	default:
		return "", &UnsupportedPlatformError{Driver: PhantomJS, Platform: p.String()}
	}
	return phantomJSDownloads + "phantomjs-" + version + "-" + suffix, nil
}

// NewGeckoDriver describes Mozilla's geckodriver, published as GitHub release
// assets holding the executable at the archive top level.
func NewGeckoDriver(client *source.Client) *binary.Driver {
	return &binary.Driver{
		Name:           GeckoDriver,
		BinaryName:     "geckodriver",
		CacheSubdir:    "geckodriver",
		Properties:     binary.PropertyNamesFor("geckodriver"),
		SystemProperty: "webdriver.gecko.driver",
		Locate:         binary.LocateFlat,
		Source: &source.GitHubReleases{
			Client: client,
			Owner:  "mozilla",
			Repo:   "geckodriver",
			Asset:  geckoDriverAsset,
		},
	}
}

func geckoDriverAsset(version string, p *platform.Info) (string, error) {
	var suffix string
	switch {
	case p.IsLinux() && p.Arch == platform.ArchAMD64:
		suffix = "linux64.tar.gz"
	case p.IsLinux() && p.Arch == platform.Arch386:
		suffix = "linux32.tar.gz"
	case p.IsLinux() && p.Arch == platform.ArchARM64:
		suffix = "linux-aarch64.tar.gz"
	case p.IsMacOS() && p.Arch == platform.ArchARM64:
		suffix = "macos-aarch64.tar.gz"
	case p.IsMacOS():
		suffix = "macos.tar.gz"
	case p.IsWindows() && p.Arch == platform.ArchAMD64:
		suffix = "win64.zip"
	case p.IsWindows() && p.Arch == platform.Arch386:
		suffix = "win32.zip"
	case p.IsWindows() && p.Arch == platform.ArchARM64:
		suffix = "win-aarch64.zip"
	default:
		return "", &UnsupportedPlatformError{Driver: GeckoDriver, Platform: p.String()}
	}
	return "geckodriver-v" + version + "-" + suffix, nil
}
