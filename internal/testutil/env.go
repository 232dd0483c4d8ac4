// Package testutil provides utilities for testing webdrivers in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	ConfigPath string
	CacheDir   string
	WorkDir    string
}

// SetupTestEnv points every webdrivers location at a fresh temp directory
// so tests never touch the user's config, cache or GitHub credentials.
// Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:       tmpDir,
		ConfigPath: filepath.Join(tmpDir, "config", "config.lua"),
		CacheDir:   filepath.Join(tmpDir, "cache"),
		WorkDir:    filepath.Join(tmpDir, "work"),
	}

	t.Setenv("WEBDRIVERS_CONFIG", env.ConfigPath)
	t.Setenv("WEBDRIVERS_CACHE_DIR", env.CacheDir)
	t.Setenv("GITHUB_TOKEN", "")

	for _, dir := range []string{filepath.Dir(env.ConfigPath), env.CacheDir, env.WorkDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}

// WriteConfig writes a Lua config to env.ConfigPath.
func (e *Env) WriteConfig(t *testing.T, lua string) {
	t.Helper()
	if err := os.WriteFile(e.ConfigPath, []byte(lua), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}
