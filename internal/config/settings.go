package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// Default settings values
const (
	DefaultDownloadRetries = 3
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "auto"
)

// LoadOptions controls where settings are read from.
type LoadOptions struct {
	// ConfigPath is the Lua config file. A missing file is skipped unless
	// ConfigRequired is set.
	ConfigPath     string
	ConfigRequired bool

	// LocalPath is the TOML override file. A missing file is skipped.
	LocalPath string

	// Properties are the property names bound to WEBDRIVERS_* variables.
	Properties []string

	// Overrides and PropertyOverrides come from command-line flags and win
	// over every other layer. Overrides use the Key* names.
	Overrides         map[string]string
	PropertyOverrides map[string]string

	// Detector supplies the Lua platform table; nil omits it.
	Detector platform.Detector
}

// Settings is the merged configuration. Precedence, lowest first:
// defaults, Lua config, local TOML overrides, environment, flags.
type Settings struct {
	v     *viper.Viper
	names map[string]string // lower-cased property name to original spelling
	files []string
}

// Load reads and layers every configuration source.
func Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	v := viper.New()
	s := &Settings{v: v, names: make(map[string]string)}

	if dir, err := DefaultCacheDir(); err == nil {
		v.SetDefault(KeyCacheDir, dir)
	}
	v.SetDefault(KeyDownloadRetries, DefaultDownloadRetries)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)

	// Lowest priority: Lua config
	if opts.ConfigPath != "" {
		if err := s.mergeLua(ctx, opts); err != nil {
			return nil, err
		}
	}

	// Higher priority: project-local TOML overrides
	if opts.LocalPath != "" {
		if _, err := os.Stat(opts.LocalPath); err == nil {
			v.SetConfigType("toml")
			v.SetConfigFile(opts.LocalPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", opts.LocalPath, err)
			}
			local, err := ReadLocal(opts.LocalPath)
			if err != nil {
				return nil, err
			}
			s.addNames(local.Properties)
			s.files = append(s.files, opts.LocalPath)
		}
	}

	// Environment
	for _, key := range []string{KeyCacheDir, KeyDownloadRetries, KeyLogLevel, KeyLogFormat} {
		if err := v.BindEnv(key, envVarForKey(key)); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}
	for _, name := range opts.Properties {
		s.addName(name)
		if err := v.BindEnv(propertyKey(name), EnvVarFor(name)); err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
	}

	// Highest priority: CLI flags
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}
	for name, value := range opts.PropertyOverrides {
		s.addName(name)
		v.Set(propertyKey(name), value)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) mergeLua(ctx context.Context, opts LoadOptions) error {
	if _, err := os.Stat(opts.ConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) && !opts.ConfigRequired {
			return nil
		}
		return fmt.Errorf("config file %s: %w", opts.ConfigPath, err)
	}

	cfg, err := NewParser(opts.Detector).ParseFile(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", opts.ConfigPath, err)
	}

	values := map[string]interface{}{}
	if cfg.CacheDir != "" {
		values[KeyCacheDir] = cfg.CacheDir
	}
	if cfg.DownloadRetries != nil {
		values[KeyDownloadRetries] = *cfg.DownloadRetries
	}
	logValues := map[string]interface{}{}
	if cfg.Log.Level != "" {
		logValues["level"] = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logValues["format"] = cfg.Log.Format
	}
	if len(logValues) > 0 {
		values["log"] = logValues
	}
	if len(cfg.Properties) > 0 {
		props := make(map[string]interface{}, len(cfg.Properties))
		for name, value := range cfg.Properties {
			props[name] = value
		}
		values[keyProperties] = props
		s.addNames(cfg.Properties)
	}

	if err := s.v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("merging %s: %w", opts.ConfigPath, err)
	}
	s.files = append(s.files, opts.ConfigPath)
	return nil
}

func (s *Settings) validate() error {
	if err := validateRetries(s.v.GetInt(KeyDownloadRetries)); err != nil {
		return &ValidationError{Field: KeyDownloadRetries, Message: err.Error()}
	}
	if err := validateLogLevel(s.LogLevel()); err != nil {
		return &ValidationError{Field: KeyLogLevel, Message: err.Error()}
	}
	if err := validateLogFormat(s.LogFormat()); err != nil {
		return &ValidationError{Field: KeyLogFormat, Message: err.Error()}
	}
	return nil
}

func (s *Settings) addName(name string) {
	if name == "" {
		return
	}
	s.names[strings.ToLower(name)] = name
}

func (s *Settings) addNames(props map[string]string) {
	for name := range props {
		s.addName(name)
	}
}

func propertyKey(name string) string {
	return keyProperties + "." + name
}

// Get returns a property value, or "" when no layer sets it.
// Settings implements binary.PropertySource.
func (s *Settings) Get(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(s.v.GetString(propertyKey(name)))
}

// Properties returns every known non-empty property.
func (s *Settings) Properties() map[string]string {
	props := make(map[string]string)
	for _, name := range s.names {
		if value := s.Get(name); value != "" {
			props[name] = value
		}
	}
	return props
}

// PropertyNames returns the known property names in sorted order.
func (s *Settings) PropertyNames() []string {
	names := make([]string, 0, len(s.names))
	for _, name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CacheDir returns the cache root with "~" expanded.
func (s *Settings) CacheDir() (string, error) {
	dir := s.v.GetString(KeyCacheDir)
	if dir == "" {
		return "", errors.New("no cache directory configured; set " + envVarForKey(KeyCacheDir))
	}
	return ExpandHome(dir)
}

// DownloadRetries returns the number of download retries.
func (s *Settings) DownloadRetries() int {
	return s.v.GetInt(KeyDownloadRetries)
}

// LogLevel returns the configured log level.
func (s *Settings) LogLevel() string {
	return s.v.GetString(KeyLogLevel)
}

// LogFormat returns the configured log format.
func (s *Settings) LogFormat() string {
	return s.v.GetString(KeyLogFormat)
}

// Files returns the configuration files that were loaded, lowest
// precedence first.
func (s *Settings) Files() []string {
	return append([]string(nil), s.files...)
}
