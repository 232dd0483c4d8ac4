package testutil_test

import (
	"os"
	"testing"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	if got := os.Getenv("WEBDRIVERS_CONFIG"); got != env.ConfigPath {
		t.Errorf("WEBDRIVERS_CONFIG = %q, want %q", got, env.ConfigPath)
	}
	if got := os.Getenv("WEBDRIVERS_CACHE_DIR"); got != env.CacheDir {
		t.Errorf("WEBDRIVERS_CACHE_DIR = %q, want %q", got, env.CacheDir)
	}
	if got := os.Getenv("GITHUB_TOKEN"); got != "" {
		t.Errorf("GITHUB_TOKEN = %q, want empty", got)
	}

	for _, dir := range []string{env.CacheDir, env.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestEnv_WriteConfig(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.WriteConfig(t, `webdrivers = {}`)

	data, err := os.ReadFile(env.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `webdrivers = {}` {
		t.Errorf("config = %q", data)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	var first string
	t.Run("first", func(t *testing.T) {
		first = testutil.SetupTestEnv(t).Root
	})
	t.Run("second", func(t *testing.T) {
		if root := testutil.SetupTestEnv(t).Root; root == first {
			t.Error("test environments share a root")
		}
	})
}
