package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/binary"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/lock"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/service"
)

// Output formats for provision
const (
	outputPath       = "path"
	outputProperties = "properties"
	outputYAML       = "yaml"
)

type provisionFlags struct {
	version      string
	url          string
	binary       string
	sha256       string
	signatureURL string
	keyring      string
	platform     string
	format       string
	noWait       bool
	timeout      time.Duration
}

func newProvisionCmd(a *app) *cobra.Command {
	var f provisionFlags

	cmd := &cobra.Command{
		Use:   "provision <driver>...",
		Short: "Provision driver binaries and print their paths",
		Long: `Provision resolves each driver from its properties, downloads and unpacks
it into the cache when needed, and prints the executable path.

Precedence for each driver: an existing local binary, then an explicit
download URL, then a version (latest when unset).`,
		Example: `  webdrivers provision phantomjs
  webdrivers provision geckodriver --version 0.34.0
  webdrivers provision phantomjs --format properties`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, a, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.version, "version", "", "driver version or semver constraint")
	flags.StringVar(&f.url, "url", "", "explicit archive download URL")
	flags.StringVar(&f.binary, "binary", "", "use an existing executable at this path")
	flags.StringVar(&f.sha256, "sha256", "", "expected SHA-256 digest of the archive")
	flags.StringVar(&f.signatureURL, "signature-url", "", "detached OpenPGP signature of the archive")
	flags.StringVar(&f.keyring, "keyring", "", "OpenPGP public keyring for --signature-url")
	flags.StringVar(&f.platform, "platform", "", "target platform as os/arch (default: this machine)")
	flags.StringVar(&f.format, "format", outputPath, "output format: path, properties, yaml")
	flags.BoolVar(&f.noWait, "no-wait", false, "fail instead of waiting when another process holds the cache lock")
	flags.DurationVar(&f.timeout, "timeout", 10*time.Minute, "overall time limit")

	return cmd
}

func runProvision(cmd *cobra.Command, a *app, f provisionFlags, args []string) error {
	switch f.format {
	case outputPath, outputProperties, outputYAML:
	default:
		return fmt.Errorf("unknown format %q (expected path, properties or yaml)", f.format)
	}

	ctx := cmd.Context()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	detector := a.detector
	if f.platform != "" {
		info, err := platform.Parse(f.platform)
		if err != nil {
			return err
		}
		detector = platform.Static{Info: info}
	}

	registry := a.registry()

	// Per-driver flags only make sense for a single driver
	if len(args) > 1 && f.hasDriverFlags() {
		return fmt.Errorf("--version, --url, --binary, --sha256, --signature-url and --keyring need exactly one driver")
	}

	var overrides map[string]string
	if len(args) == 1 {
		d, err := registry.Lookup(args[0])
		if err != nil {
			return err
		}
		overrides = f.propertyOverrides(d.Properties)
	}

	settings, err := a.loadSettings(ctx, registry, detector, overrides)
	if err != nil {
		return err
	}
	logger := a.logger(cmd, settings)

	cacheDir, err := settings.CacheDir()
	if err != nil {
		return err
	}

	provisioner, err := binary.NewProvisioner(binary.Config{
		CacheDir: cacheDir,
		Fetcher: binary.NewDownloader(
			binary.WithRetries(settings.DownloadRetries()),
			binary.WithDownloadLogger(logger),
		),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	svc := service.NewProvisionService(registry, provisioner, detector, service.RealClock{}, cacheDir, logger)
	if f.noWait {
		svc.WithLockOptions(lock.NoWait())
	}

	results := make([]*service.ProvisionResult, 0, len(args))
	for _, name := range args {
		result, err := svc.Provision(ctx, service.ProvisionRequest{Driver: name, Properties: settings})
		if err != nil {
			return err
		}
		logger.Info("driver ready", "driver", result.Driver, "path", result.Resolved.Path, "elapsed", result.Elapsed.String())
		results = append(results, result)
	}

	return writeProvisionResults(cmd.OutOrStdout(), f.format, results)
}

func (f provisionFlags) hasDriverFlags() bool {
	return f.version != "" || f.url != "" || f.binary != "" || f.sha256 != "" || f.signatureURL != "" || f.keyring != ""
}

func (f provisionFlags) propertyOverrides(names binary.PropertyNames) map[string]string {
	overrides := map[string]string{}
	set := func(name, value string) {
		if name != "" && value != "" {
			overrides[name] = value
		}
	}
	set(names.Version, f.version)
	set(names.URL, f.url)
	set(names.LocalPath, f.binary)
	set(names.SHA256, f.sha256)
	set(names.SignatureURL, f.signatureURL)
	set(names.Keyring, f.keyring)
	return overrides
}

// provisionOutput is the yaml form of a ProvisionResult.
type provisionOutput struct {
	Driver         string `json:"driver"`
	Path           string `json:"path"`
	Version        string `json:"version,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	Strategy       string `json:"strategy"`
	Platform       string `json:"platform"`
	SystemProperty string `json:"system_property,omitempty"`
}

func writeProvisionResults(w io.Writer, format string, results []*service.ProvisionResult) error {
	switch format {
	case outputProperties:
		for _, r := range results {
			key := r.SystemProperty
			if key == "" {
				key = r.Driver + ".binary.path"
			}
			fmt.Fprintf(w, "%s=%s\n", key, escapeProperty(r.Resolved.Path))
		}
		return nil

	case outputYAML:
		out := make([]provisionOutput, 0, len(results))
		for _, r := range results {
			out = append(out, provisionOutput{
				Driver:         r.Driver,
				Path:           r.Resolved.Path,
				Version:        r.Resolved.Version,
				SourceURL:      r.Resolved.SourceURL,
				Strategy:       r.Strategy.String(),
				Platform:       r.Platform.String(),
				SystemProperty: r.SystemProperty,
			})
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		_, err = w.Write(data)
		return err

	default:
		for _, r := range results {
			fmt.Fprintln(w, r.Resolved.Path)
		}
		return nil
	}
}

// escapeProperty escapes backslashes for Java .properties files.
func escapeProperty(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}
