package binary

import (
	"testing"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

func TestResolveRequest(t *testing.T) {
	driver := &Driver{Name: "phantomjs", BinaryName: "phantomjs", Properties: PropertyNamesFor("phantomjs")}
	linux := &platform.Info{OS: "linux", Arch: platform.ArchAMD64}

	tests := []struct {
		name         string
		props        MapProperties
		wantStrategy Strategy
		wantVersion  string
		wantURL      string
		wantLocal    string
	}{
		{
			name:         "nothing_set",
			props:        MapProperties{},
			wantStrategy: StrategyLatest,
		},
		{
			name:         "version_only",
			props:        MapProperties{"phantomjsBinaryVersion": "2.1.1"},
			wantStrategy: StrategyVersion,
			wantVersion:  "2.1.1",
		},
		{
			name: "url_beats_version",
			props: MapProperties{
				"phantomjsBinaryVersion": "2.1.1",
				"phantomjsBinaryUrl":     "https://example.com/p.zip",
			},
			wantStrategy: StrategyURL,
			wantURL:      "https://example.com/p.zip",
		},
		{
			name: "local_path_beats_everything",
			props: MapProperties{
				"phantomjsBinaryVersion": "2.1.1",
				"phantomjsBinaryUrl":     "https://example.com/p.zip",
				"phantomjsBinary":        "/opt/phantomjs",
			},
			wantStrategy: StrategyLocalPath,
			wantURL:      "https://example.com/p.zip",
			wantLocal:    "/opt/phantomjs",
		},
		{
			name: "whitespace_is_trimmed",
			props: MapProperties{
				"phantomjsBinaryVersion": "  2.1.1 ",
				"phantomjsBinaryUrl":     "   ",
			},
			wantStrategy: StrategyVersion,
			wantVersion:  "2.1.1",
		},
		{
			name:         "other_driver_properties_ignored",
			props:        MapProperties{"geckodriverBinaryVersion": "0.34.0"},
			wantStrategy: StrategyLatest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ResolveRequest(tt.props, driver, linux)

			if got := req.Strategy(); got != tt.wantStrategy {
				t.Errorf("Strategy() = %v, want %v", got, tt.wantStrategy)
			}
			if req.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", req.Version, tt.wantVersion)
			}
			if req.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", req.URL, tt.wantURL)
			}
			if req.LocalPath != tt.wantLocal {
				t.Errorf("LocalPath = %q, want %q", req.LocalPath, tt.wantLocal)
			}
			if req.Driver != "phantomjs" {
				t.Errorf("Driver = %q, want phantomjs", req.Driver)
			}
			if req.Platform != linux {
				t.Error("Platform was not carried into the request")
			}
		})
	}
}

func TestResolveRequestVerificationProperties(t *testing.T) {
	driver := &Driver{Name: "geckodriver", Properties: PropertyNamesFor("geckodriver")}
	props := MapProperties{
		"geckodriverBinarySha256":       "abc",
		"geckodriverBinarySignatureUrl": "https://example.com/g.asc",
		"geckodriverBinaryKeyring":      "/keys/mozilla.gpg",
	}

	req := ResolveRequest(props, driver, &platform.Info{OS: "linux"})
	if req.SHA256 != "abc" || req.SignatureURL != "https://example.com/g.asc" || req.KeyringPath != "/keys/mozilla.gpg" {
		t.Errorf("verification inputs not resolved: %+v", req)
	}
}

func TestResolveRequestNilProperties(t *testing.T) {
	driver := &Driver{Name: "phantomjs", Properties: PropertyNamesFor("phantomjs")}

	req := ResolveRequest(nil, driver, nil)
	if req.Strategy() != StrategyLatest {
		t.Errorf("Strategy() = %v, want latest", req.Strategy())
	}
}

func TestPropertyNamesFor(t *testing.T) {
	names := PropertyNamesFor("phantomjs")

	want := PropertyNames{
		Version:      "phantomjsBinaryVersion",
		URL:          "phantomjsBinaryUrl",
		LocalPath:    "phantomjsBinary",
		SHA256:       "phantomjsBinarySha256",
		SignatureURL: "phantomjsBinarySignatureUrl",
		Keyring:      "phantomjsBinaryKeyring",
	}
	if names != want {
		t.Errorf("PropertyNamesFor() = %+v, want %+v", names, want)
	}
}

func TestStrategyString(t *testing.T) {
	tests := map[Strategy]string{
		StrategyLatest:    "latest",
		StrategyVersion:   "version",
		StrategyURL:       "url",
		StrategyLocalPath: "local-path",
		Strategy(99):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Strategy(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestDriverDefaults(t *testing.T) {
	d := &Driver{Name: "phantomjs", BinaryName: "phantomjs"}

	if got := d.cacheSubdir(); got != "phantomjs" {
		t.Errorf("cacheSubdir() = %q, want phantomjs", got)
	}
	if d.locate() == nil {
		t.Error("locate() returned nil")
	}

	d.CacheSubdir = "phantom"
	if got := d.cacheSubdir(); got != "phantom" {
		t.Errorf("cacheSubdir() = %q, want phantom", got)
	}

	if got := d.ExecutableName(&platform.Info{OS: "windows"}); got != "phantomjs.exe" {
		t.Errorf("ExecutableName(windows) = %q, want phantomjs.exe", got)
	}
	if got := d.ExecutableName(&platform.Info{OS: "darwin"}); got != "phantomjs" {
		t.Errorf("ExecutableName(darwin) = %q, want phantomjs", got)
	}
	if got := d.ExecutableName(nil); got != "phantomjs" {
		t.Errorf("ExecutableName(nil) = %q, want phantomjs", got)
	}
}
