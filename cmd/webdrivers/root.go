package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/config"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/drivers"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/log"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/source"
)

// app carries the global flags and the collaborators commands share.
// Tests replace newClient and detector.
type app struct {
	configPath string
	localPath  string
	cacheDir   string
	logLevel   string
	logFormat  string

	newClient func() *source.Client
	detector  platform.Detector
}

func newApp() *app {
	return &app{
		localPath: config.LocalConfigFile,
		newClient: source.NewClientFromEnv,
		detector:  platform.NewDetector(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "webdrivers",
		Short: "Download and cache WebDriver binaries",
		Long: "webdrivers resolves, downloads, verifies and unpacks browser driver binaries\n" +
			"(PhantomJS, geckodriver) into a local cache and prints their paths.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Lua config file (default $WEBDRIVERS_CONFIG or <user config dir>/webdrivers/config.lua)")
	flags.StringVar(&a.localPath, "local", a.localPath, "project-local TOML override file")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "driver cache directory")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto, console, json")

	root.AddCommand(newProvisionCmd(a))
	root.AddCommand(newDriversCmd(a))
	root.AddCommand(newPlatformCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newPinCmd(a))

	return root
}

// registry builds the driver registry with a fresh GitHub client.
func (a *app) registry() *drivers.Registry {
	return drivers.NewRegistry(a.newClient())
}

// loadSettings merges every configuration layer. detector feeds the Lua
// platform table; propertyOverrides come from command flags and win over
// all other sources.
func (a *app) loadSettings(ctx context.Context, registry *drivers.Registry, detector platform.Detector, propertyOverrides map[string]string) (*config.Settings, error) {
	configPath := a.configPath
	required := configPath != ""
	if configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	} else {
		p, err := config.ExpandHome(configPath)
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	overrides := map[string]string{}
	if a.cacheDir != "" {
		overrides[config.KeyCacheDir] = a.cacheDir
	}
	if a.logLevel != "" {
		overrides[config.KeyLogLevel] = a.logLevel
	}
	if a.logFormat != "" {
		overrides[config.KeyLogFormat] = a.logFormat
	}

	settings, err := config.Load(ctx, config.LoadOptions{
		ConfigPath:        configPath,
		ConfigRequired:    required,
		LocalPath:         a.localPath,
		Properties:        propertyNames(registry),
		Overrides:         overrides,
		PropertyOverrides: propertyOverrides,
		Detector:          detector,
	})
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// logger builds the zerolog-backed logger for cmd and installs it as the
// package default.
func (a *app) logger(cmd *cobra.Command, settings *config.Settings) log.Logger {
	l := log.New(log.Options{
		Level:  settings.LogLevel(),
		Format: settings.LogFormat(),
		Writer: cmd.ErrOrStderr(),
	})
	log.SetDefault(l)
	return l
}

// propertyNames lists every property any registered driver reads.
func propertyNames(registry *drivers.Registry) []string {
	var names []string
	for _, d := range registry.All() {
		p := d.Properties
		for _, name := range []string{p.Version, p.URL, p.LocalPath, p.SHA256, p.SignatureURL, p.Keyring} {
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
