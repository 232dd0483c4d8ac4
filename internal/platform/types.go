// Package platform detects the host operating system and architecture that
// driver binaries are provisioned for.
//
// OS and architecture come from the Go runtime. On Linux, gopsutil supplies
// distribution details; detection failures there degrade gracefully to
// OS/arch only. The detected Info can be injected into a Lua state as a
// read-only "platform" table so configuration files can branch on it.
package platform

import "context"

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Normalized architecture names.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
	Arch386   = "386"
	ArchARM   = "arm"
)

// Info contains platform detection information.
type Info struct {
	OS       string `json:"os"`                 // "linux", "darwin", "windows"
	Arch     string `json:"arch"`               // normalized: "amd64", "arm64", "386", "arm"
	ArchRaw  string `json:"arch_raw,omitempty"` // original GOARCH
	Platform string `json:"distro,omitempty"`   // distro ID (Linux only, e.g. "ubuntu")
	Family   string `json:"family,omitempty"`   // canonical family (e.g. "debian")
	Version  string `json:"version,omitempty"`  // distro version (Linux only)
}

// String returns "os/arch".
func (i *Info) String() string {
	return i.OS + "/" + i.Arch
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Is64Bit reports whether the architecture is a 64-bit one.
func (i *Info) Is64Bit() bool {
	return i.Arch == ArchAMD64 || i.Arch == ArchARM64
}

// ExecutableSuffix returns the file suffix executables carry on this
// platform: ".exe" on Windows, empty elsewhere.
func (i *Info) ExecutableSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// ExecutableName appends the platform executable suffix to name.
func (i *Info) ExecutableName(name string) string {
	return name + i.ExecutableSuffix()
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static is a Detector that always returns the same Info.
// It is used when the target platform is given explicitly.
type Static struct {
	Info *Info
}

// Detect returns the configured Info.
func (s Static) Detect(ctx context.Context) (*Info, error) {
	return s.Info, nil
}
