package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LocalConfig is the project-local override file (webdrivers.local.toml).
// It is meant for per-checkout pins that should not be committed:
//
//	download_retries = 5
//
//	[log]
//	level = "debug"
//
//	[properties]
//	phantomjsBinaryVersion = "2.1.1"
type LocalConfig struct {
	CacheDir        string            `toml:"cache_dir,omitempty" mapstructure:"cache_dir"`
	DownloadRetries *int              `toml:"download_retries,omitempty" mapstructure:"download_retries"`
	Log             *LogConfig        `toml:"log,omitempty" mapstructure:"log"`
	Properties      map[string]string `toml:"properties,omitempty" mapstructure:"properties"`
}

// ReadLocal reads a local override file. A missing file yields an empty
// LocalConfig. Unknown keys are rejected so a rewrite never drops them.
func ReadLocal(path string) (*LocalConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &LocalConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &LocalConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// WriteLocal validates cfg and writes it to path.
func WriteLocal(path string, cfg *LocalConfig) error {
	if cfg.DownloadRetries != nil {
		if err := validateRetries(*cfg.DownloadRetries); err != nil {
			return &ValidationError{Field: luaFieldRetries, Message: err.Error()}
		}
	}
	if cfg.Log != nil {
		if err := validateLogLevel(cfg.Log.Level); err != nil {
			return &ValidationError{Field: KeyLogLevel, Message: err.Error()}
		}
		if err := validateLogFormat(cfg.Log.Format); err != nil {
			return &ValidationError{Field: KeyLogFormat, Message: err.Error()}
		}
	}
	if err := validateProperties(cfg.Properties); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling local config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// SetLocalProperty sets one property in the local override file at path,
// keeping its other content. An empty value removes the property.
func SetLocalProperty(path, name, value string) error {
	cfg, err := ReadLocal(path)
	if err != nil {
		return err
	}

	if value == "" {
		delete(cfg.Properties, name)
	} else {
		if cfg.Properties == nil {
			cfg.Properties = make(map[string]string)
		}
		cfg.Properties[name] = value
	}

	return WriteLocal(path, cfg)
}
