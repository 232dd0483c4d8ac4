package binary

import (
	"context"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// Strategy identifies how a Request acquires its binary.
type Strategy int

const (
	// StrategyLatest asks the driver's Source for the newest release
	StrategyLatest Strategy = iota
	// StrategyVersion asks the driver's Source for a specific version
	StrategyVersion
	// StrategyURL downloads from an explicit URL
	StrategyURL
	// StrategyLocalPath uses an existing file without network access
	StrategyLocalPath
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case StrategyLatest:
		return "latest"
	case StrategyVersion:
		return "version"
	case StrategyURL:
		return "url"
	case StrategyLocalPath:
		return "local-path"
	default:
		return "unknown"
	}
}

// Request describes the binary a caller wants provisioned.
// Build one with ResolveRequest so the precedence rules are applied.
type Request struct {
	Driver    string
	LocalPath string // explicit path to an existing executable
	URL       string // explicit archive download URL
	Version   string // desired version or semver constraint; empty means latest
	Platform  *platform.Info

	// Optional archive verification
	SHA256       string // expected hex digest of the archive
	SignatureURL string // detached OpenPGP signature of the archive
	KeyringPath  string // public keyring used to check SignatureURL
}

// Strategy reports the acquisition strategy with the highest precedence
// among the fields that are set.
func (r Request) Strategy() Strategy {
	switch {
	case r.LocalPath != "":
		return StrategyLocalPath
	case r.URL != "":
		return StrategyURL
	case r.Version != "":
		return StrategyVersion
	default:
		return StrategyLatest
	}
}

// Resolved is a provisioned, runnable executable.
type Resolved struct {
	Path      string // path to the executable
	Name      string // platform-specific file name, e.g. "phantomjs.exe"
	Version   string // release version when known
	SourceURL string // archive URL the executable came from; empty for local paths
}

// Release is a downloadable release as answered by a Source.
type Release struct {
	Version string
	URL     string
}

// Source derives the download location of a driver release.
// An empty version asks for the newest stable release.
type Source interface {
	Resolve(ctx context.Context, version string, p *platform.Info) (*Release, error)
}

// Fetcher retrieves a remote archive into targetDir and returns the local
// file path. It creates targetDir when missing.
type Fetcher interface {
	Fetch(ctx context.Context, url, targetDir string) (string, error)
}

// ArchiveExtractor unpacks an archive and returns the extraction root.
type ArchiveExtractor interface {
	Extract(archivePath string) (string, error)
}

// LocateFunc finds binaryName inside an extraction root.
type LocateFunc func(root, binaryName string) (string, error)

// PropertyNames are the configuration property names a driver reads.
type PropertyNames struct {
	Version      string
	URL          string
	LocalPath    string
	SHA256       string
	SignatureURL string
	Keyring      string
}

// PropertyNamesFor derives the conventional property names for a prefix:
// "phantomjs" yields phantomjsBinaryVersion, phantomjsBinaryUrl,
// phantomjsBinary and so on.
func PropertyNamesFor(prefix string) PropertyNames {
	return PropertyNames{
		Version:      prefix + "BinaryVersion",
		URL:          prefix + "BinaryUrl",
		LocalPath:    prefix + "Binary",
		SHA256:       prefix + "BinarySha256",
		SignatureURL: prefix + "BinarySignatureUrl",
		Keyring:      prefix + "BinaryKeyring",
	}
}

// Driver is the per-tool configuration the generic Provisioner consumes.
// Supporting a new tool means adding a Driver value, not new code paths.
type Driver struct {
	Name           string
	BinaryName     string // executable name without platform suffix
	CacheSubdir    string // subdirectory of the cache root; defaults to Name
	Properties     PropertyNames
	SystemProperty string // name under which the resolved path is published
	Source         Source // nil when only URL or local path acquisition works
	Locate         LocateFunc
}

// ExecutableName returns the platform-specific executable file name.
func (d *Driver) ExecutableName(p *platform.Info) string {
	if p == nil {
		return d.BinaryName
	}
	return p.ExecutableName(d.BinaryName)
}

func (d *Driver) cacheSubdir() string {
	if d.CacheSubdir != "" {
		return d.CacheSubdir
	}
	return d.Name
}

func (d *Driver) locate() LocateFunc {
	if d.Locate != nil {
		return d.Locate
	}
	return LocateNestedBin
}

// VerificationMethod indicates how an archive was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification was requested
	VerificationNone VerificationMethod = iota
	// VerificationGPG indicates OpenPGP signature verification
	VerificationGPG
	// VerificationSHA256 indicates SHA256 digest verification
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}
