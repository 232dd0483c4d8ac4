package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/config"
)

func newDriversCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List supported drivers and the properties they read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, d := range a.registry().All() {
				fmt.Fprintf(out, "%s\n", d.Name)
				fmt.Fprintf(out, "  system property:  %s\n", d.SystemProperty)
				fmt.Fprintf(out, "  version:          %s\n", d.Properties.Version)
				fmt.Fprintf(out, "  download url:     %s\n", d.Properties.URL)
				fmt.Fprintf(out, "  local binary:     %s\n", d.Properties.LocalPath)
				fmt.Fprintf(out, "  sha256:           %s\n", d.Properties.SHA256)
				fmt.Fprintf(out, "  signature url:    %s\n", d.Properties.SignatureURL)
				fmt.Fprintf(out, "  keyring:          %s\n", d.Properties.Keyring)
			}
			return nil
		},
	}
}

func newPlatformCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform",
		Long:  "Show the platform as seen by driver downloads and by the Lua config's platform table.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.detector.Detect(cmd.Context())
			if err != nil {
				return fmt.Errorf("detect platform: %w", err)
			}
			return writeYAML(cmd, info)
		},
	}
}

// effectiveConfig is the yaml form of the merged settings.
type effectiveConfig struct {
	CacheDir        string            `json:"cache_dir"`
	DownloadRetries int               `json:"download_retries"`
	Log             effectiveLog      `json:"log"`
	Properties      map[string]string `json:"properties,omitempty"`
	Files           []string          `json:"files,omitempty"`
	Environment     map[string]string `json:"environment,omitempty"`
}

type effectiveLog struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func newConfigCmd(a *app) *cobra.Command {
	var showEnv bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the Lua config, the
local TOML overrides, WEBDRIVERS_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := a.registry()
			settings, err := a.loadSettings(cmd.Context(), registry, a.detector, nil)
			if err != nil {
				return err
			}

			cacheDir, err := settings.CacheDir()
			if err != nil {
				return err
			}

			out := effectiveConfig{
				CacheDir:        cacheDir,
				DownloadRetries: settings.DownloadRetries(),
				Log:             effectiveLog{Level: settings.LogLevel(), Format: settings.LogFormat()},
				Properties:      settings.Properties(),
				Files:           settings.Files(),
			}
			if showEnv {
				out.Environment = environmentNames(propertyNames(registry))
			}
			return writeYAML(cmd, out)
		},
	}

	cmd.Flags().BoolVar(&showEnv, "env", false, "include the environment variable for each driver property")
	return cmd
}

func environmentNames(properties []string) map[string]string {
	env := make(map[string]string, len(properties))
	for _, name := range properties {
		env[name] = config.EnvVarFor(name)
	}
	return env
}

func writeYAML(cmd *cobra.Command, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
