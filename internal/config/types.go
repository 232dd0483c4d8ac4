package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Config is the content of a webdrivers Lua config file:
//
//	webdrivers = {
//	    cache_dir = "~/.cache/webdrivers",
//	    download_retries = 5,
//	    log = { level = "info", format = "console" },
//	    properties = {
//	        phantomjsBinaryVersion = "2.1.1",
//	        geckodriverBinary = platform.is_linux and "/usr/bin/geckodriver" or nil,
//	    },
//	}
type Config struct {
	CacheDir        string            `json:"cache_dir,omitempty"`
	DownloadRetries *int              `json:"download_retries,omitempty"`
	Log             LogConfig         `json:"log,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `json:"level,omitempty" toml:"level,omitempty"`
	Format string `json:"format,omitempty" toml:"format,omitempty"`
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if c.DownloadRetries != nil {
		if err := validateRetries(*c.DownloadRetries); err != nil {
			return &ValidationError{Field: luaFieldRetries, Message: err.Error()}
		}
	}

	if strings.ContainsRune(c.CacheDir, 0) {
		return &ValidationError{Field: luaFieldCacheDir, Message: "path contains a NUL byte"}
	}

	if err := validateLogLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Message: err.Error()}
	}
	if err := validateLogFormat(c.Log.Format); err != nil {
		return &ValidationError{Field: "log.format", Message: err.Error()}
	}

	return validateProperties(c.Properties)
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// propertyNamePattern matches property names such as phantomjsBinaryVersion.
// Dots are excluded because settings keys use them as separators.
var propertyNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validateProperties(props map[string]string) error {
	if len(props) > MaxPropertyCount {
		return &ValidationError{
			Field:   luaFieldProperties,
			Message: fmt.Sprintf("too many properties (%d), maximum is %d", len(props), MaxPropertyCount),
		}
	}

	// Sorted for a stable first error
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !propertyNamePattern.MatchString(name) {
			return &ValidationError{
				Field:   luaFieldProperties,
				Message: fmt.Sprintf("invalid property name %q", name),
			}
		}
		if len(props[name]) > MaxPropertyValueLen {
			return &ValidationError{
				Field:   luaFieldProperties + "." + name,
				Message: fmt.Sprintf("value too long (%d chars, max %d)", len(props[name]), MaxPropertyValueLen),
			}
		}
	}

	return nil
}

func validateRetries(n int) error {
	if n < 0 || n > MaxDownloadRetries {
		return fmt.Errorf("must be between 0 and %d (got %d)", MaxDownloadRetries, n)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q (expected debug, info, warn or error)", level)
}

func validateLogFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "auto", "console", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (expected auto, console or json)", format)
}
