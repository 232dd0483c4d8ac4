package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultConfigPath returns the Lua config location: $WEBDRIVERS_CONFIG when
// set, otherwise <user config dir>/webdrivers/config.lua.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandHome(p)
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determining config directory: %w", err)
	}
	return filepath.Join(dir, "webdrivers", "config.lua"), nil
}

// DefaultCacheDir returns <user cache dir>/webdrivers.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("determining cache directory: %w", err)
	}
	return filepath.Join(dir, "webdrivers"), nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// EnvVarFor returns the environment variable that overrides a property:
// phantomjsBinaryVersion becomes WEBDRIVERS_PHANTOMJS_BINARY_VERSION.
func EnvVarFor(property string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	b.WriteByte('_')

	runes := []rune(property)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_' {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// envVarForKey maps a settings key such as "log.level" to WEBDRIVERS_LOG_LEVEL.
func envVarForKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
