package config

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestConfig_Validate(t *testing.T) {
	tooMany := make(map[string]string)
	for i := 0; i <= MaxPropertyCount; i++ {
		tooMany[fmt.Sprintf("prop%d", i)] = "x"
	}

	tests := []struct {
		name      string
		config    Config
		wantField string
	}{
		{
			name:   "empty",
			config: Config{},
		},
		{
			name: "valid",
			config: Config{
				CacheDir:        "~/.cache/webdrivers",
				DownloadRetries: intPtr(0),
				Log:             LogConfig{Level: "INFO", Format: "console"},
				Properties:      map[string]string{"phantomjsBinaryVersion": "2.1.1"},
			},
		},
		{
			name:      "negative retries",
			config:    Config{DownloadRetries: intPtr(-1)},
			wantField: luaFieldRetries,
		},
		{
			name:      "too many retries",
			config:    Config{DownloadRetries: intPtr(MaxDownloadRetries + 1)},
			wantField: luaFieldRetries,
		},
		{
			name:      "NUL in cache dir",
			config:    Config{CacheDir: "/tmp/\x00x"},
			wantField: luaFieldCacheDir,
		},
		{
			name:      "bad log level",
			config:    Config{Log: LogConfig{Level: "trace"}},
			wantField: "log.level",
		},
		{
			name:      "bad log format",
			config:    Config{Log: LogConfig{Format: "xml"}},
			wantField: "log.format",
		},
		{
			name:      "property name with dot",
			config:    Config{Properties: map[string]string{"a.b": "x"}},
			wantField: luaFieldProperties,
		},
		{
			name:      "property name starting with digit",
			config:    Config{Properties: map[string]string{"1abc": "x"}},
			wantField: luaFieldProperties,
		},
		{
			name:      "property value too long",
			config:    Config{Properties: map[string]string{"long": strings.Repeat("x", MaxPropertyValueLen+1)}},
			wantField: luaFieldProperties + ".long",
		},
		{
			name:      "too many properties",
			config:    Config{Properties: tooMany},
			wantField: luaFieldProperties,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	withField := &ValidationError{Field: "cache_dir", Message: "bad"}
	if got := withField.Error(); got != "config validation failed for cache_dir: bad" {
		t.Errorf("Error() = %q", got)
	}

	noField := &ValidationError{Message: "bad"}
	if got := noField.Error(); got != "config validation failed: bad" {
		t.Errorf("Error() = %q", got)
	}
}
