package binary

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// tarEntry describes one entry of a test archive.
type tarEntry struct {
	name     string
	content  string
	mode     int64
	typeflag byte
	linkname string
}

// buildTar returns an uncompressed tar stream of entries.
func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		header := &tar.Header{
			Name:     e.name,
			Mode:     mode,
			Typeflag: typeflag,
			Linkname: e.linkname,
		}
		if typeflag == tar.TypeReg {
			header.Size = int64(len(e.content))
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.name, err)
		}
		if typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatalf("failed to write content for %s: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// compress wraps data in the compression used by format.
func compress(t *testing.T, format Format, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch format {
	case FormatTar:
		return data
	case FormatTarGz:
		w = gzip.NewWriter(&buf)
	case FormatTarXz:
		w, err = xz.NewWriter(&buf)
	case FormatTarZst:
		w, err = zstd.NewWriter(&buf)
	default:
		t.Fatalf("no test writer for format %s", format)
	}
	if err != nil {
		t.Fatalf("failed to create %s writer: %v", format, err)
	}

	if _, err := w.Write(data); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close compressor: %v", err)
	}
	return buf.Bytes()
}

// writeArchive writes a tar archive in format to dir/name.
func writeArchive(t *testing.T, dir, name string, format Format, entries []tarEntry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, compress(t, format, buildTar(t, entries)), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

// writeZip writes a zip archive with the given files to dir/name.
func writeZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for fileName, content := range files {
		fh := &zip.FileHeader{Name: fileName, Method: zip.Deflate}
		fh.SetMode(0755)
		w, err := zw.CreateHeader(fh)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", fileName, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", fileName, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"phantomjs-2.1.1-linux-x86_64.tar.bz2", FormatTarBz2},
		{"phantomjs-2.1.1-macosx.zip", FormatZip},
		{"geckodriver-v0.34.0-linux64.tar.gz", FormatTarGz},
		{"tool.TGZ", FormatTarGz},
		{"tool.tar.xz", FormatTarXz},
		{"tool.txz", FormatTarXz},
		{"tool.tbz2", FormatTarBz2},
		{"tool.tar.zst", FormatTarZst},
		{"tool.tar.lz", FormatTarLz},
		{"tool.tar", FormatTar},
		{"tool.exe", FormatUnknown},
		{"tool.gz", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.name); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestExtractFormats(t *testing.T) {
	entries := []tarEntry{
		{name: "phantomjs-2.1.1-linux-x86_64/", typeflag: tar.TypeDir, mode: 0755},
		{name: "phantomjs-2.1.1-linux-x86_64/bin/phantomjs", content: "#!/bin/sh\necho phantom", mode: 0755},
		{name: "phantomjs-2.1.1-linux-x86_64/README.md", content: "readme"},
	}

	tests := []struct {
		name   string
		format Format
		file   string
	}{
		{name: "tar", format: FormatTar, file: "phantomjs-2.1.1-linux-x86_64.tar"},
		{name: "tar.gz", format: FormatTarGz, file: "phantomjs-2.1.1-linux-x86_64.tar.gz"},
		{name: "tgz", format: FormatTarGz, file: "phantomjs-2.1.1-linux-x86_64.tgz"},
		{name: "tar.xz", format: FormatTarXz, file: "phantomjs-2.1.1-linux-x86_64.tar.xz"},
		{name: "tar.zst", format: FormatTarZst, file: "phantomjs-2.1.1-linux-x86_64.tar.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := writeArchive(t, dir, tt.file, tt.format, entries)

			root, err := NewExtractor().Extract(archive)
			if err != nil {
				t.Fatalf("extraction failed: %v", err)
			}

			if want := filepath.Join(dir, "phantomjs-2.1.1-linux-x86_64"); root != want {
				t.Errorf("root = %s, want %s", root, want)
			}

			bin := filepath.Join(root, "phantomjs-2.1.1-linux-x86_64", "bin", "phantomjs")
			content, err := os.ReadFile(bin)
			if err != nil {
				t.Fatalf("failed to read extracted binary: %v", err)
			}
			if string(content) != "#!/bin/sh\necho phantom" {
				t.Errorf("content mismatch: %q", string(content))
			}

			if runtime.GOOS != "windows" {
				info, err := os.Stat(bin)
				if err != nil {
					t.Fatalf("failed to stat binary: %v", err)
				}
				if info.Mode().Perm()&0100 == 0 {
					t.Errorf("expected executable mode to be preserved, got %v", info.Mode())
				}
			}
		})
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := writeZip(t, dir, "phantomjs-2.1.1-windows.zip", map[string]string{
		"phantomjs-2.1.1-windows/bin/phantomjs.exe": "MZ",
		"phantomjs-2.1.1-windows/LICENSE.BSD":       "license",
	})

	root, err := NewExtractor().Extract(archive)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	if want := filepath.Join(dir, "phantomjs-2.1.1-windows"); root != want {
		t.Errorf("root = %s, want %s", root, want)
	}

	content, err := os.ReadFile(filepath.Join(root, "phantomjs-2.1.1-windows", "bin", "phantomjs.exe"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != "MZ" {
		t.Errorf("content mismatch: %q", string(content))
	}
}

func TestExtractReplacesPreviousRoot(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "tool", "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	archive := writeArchive(t, dir, "tool.tar.gz", FormatTarGz, []tarEntry{
		{name: "tool-1.0/bin/tool", content: "new", mode: 0755},
	})

	root, err := NewExtractor().Extract(archive)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale file from previous extraction survived")
	}
	if _, err := os.Stat(filepath.Join(root, "tool-1.0", "bin", "tool")); err != nil {
		t.Errorf("new file missing: %v", err)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
	}{
		{
			name: "unsupported_format",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "tool.rar")
				if err := os.WriteFile(path, []byte("rar"), 0644); err != nil {
					t.Fatalf("failed to write file: %v", err)
				}
				return path
			},
		},
		{
			name: "corrupt_gzip",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "tool.tar.gz")
				if err := os.WriteFile(path, []byte("not gzip data"), 0644); err != nil {
					t.Fatalf("failed to write file: %v", err)
				}
				return path
			},
		},
		{
			name: "corrupt_zip",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "tool.zip")
				if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
					t.Fatalf("failed to write file: %v", err)
				}
				return path
			},
		},
		{
			name: "path_traversal",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar.gz", FormatTarGz, []tarEntry{
					{name: "../../etc/evil", content: "pwned"},
				})
			},
		},
		{
			name: "absolute_symlink",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
					{name: "link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
				})
			},
		},
		{
			name: "escaping_symlink",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
					{name: "sub/link", typeflag: tar.TypeSymlink, linkname: "../../outside"},
				})
			},
		},
		{
			name: "symlink_chain",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
					{name: "x/", typeflag: tar.TypeDir, mode: 0755},
					{name: "x/l", typeflag: tar.TypeSymlink, linkname: ".."},
					{name: "x/l/y", typeflag: tar.TypeSymlink, linkname: ".."},
					{name: "x/l/y/escaped.txt", content: "pwned"},
				})
			},
		},
		{
			name: "link_resolved_by_later_entry",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
					{name: "d/", typeflag: tar.TypeDir, mode: 0755},
					{name: "b", typeflag: tar.TypeSymlink, linkname: "d/a/../.."},
					{name: "d/a", typeflag: tar.TypeSymlink, linkname: ".."},
				})
			},
		},
		{
			name: "file_over_symlink",
			setup: func(t *testing.T, dir string) string {
				return writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
					{name: "lib/", typeflag: tar.TypeDir, mode: 0755},
					{name: "tool", typeflag: tar.TypeSymlink, linkname: "lib/tool"},
					{name: "tool", content: "overwrite"},
				})
			},
		},
		{
			name: "zip_traversal",
			setup: func(t *testing.T, dir string) string {
				return writeZip(t, dir, "evil.zip", map[string]string{"../evil": "pwned"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := tt.setup(t, dir)

			root, err := NewExtractor().Extract(archive)
			if err == nil {
				t.Fatalf("expected error, got root %s", root)
			}

			var exErr *ExtractionError
			if !errors.As(err, &exErr) {
				t.Fatalf("expected *ExtractionError, got %T: %v", err, err)
			}
			if exErr.Archive != archive {
				t.Errorf("Archive = %s, want %s", exErr.Archive, archive)
			}

			// No partial extraction or temp directory is left next to the archive
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatalf("failed to list dir: %v", err)
			}
			for _, e := range entries {
				if e.IsDir() {
					t.Errorf("unexpected directory left behind: %s", e.Name())
				}
			}
		})
	}
}

func TestExtractAllowsInternalSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	dir := t.TempDir()
	archive := writeArchive(t, dir, "tool.tar", FormatTar, []tarEntry{
		{name: "tool-1.0/lib/tool", content: "real", mode: 0755},
		{name: "tool-1.0/bin/tool", typeflag: tar.TypeSymlink, linkname: "../lib/tool"},
	})

	root, err := NewExtractor().Extract(archive)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, "tool-1.0", "bin", "tool"))
	if err != nil {
		t.Fatalf("failed to read through symlink: %v", err)
	}
	if string(content) != "real" {
		t.Errorf("content mismatch: %q", string(content))
	}
}

func TestExtractSymlinkChainWritesNothingOutside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	dir := t.TempDir()
	archive := writeArchive(t, dir, "evil.tar", FormatTar, []tarEntry{
		{name: "x/", typeflag: tar.TypeDir, mode: 0755},
		{name: "x/l", typeflag: tar.TypeSymlink, linkname: ".."},
		{name: "x/l/y", typeflag: tar.TypeSymlink, linkname: ".."},
		{name: "x/l/y/escaped.txt", content: "pwned"},
	})

	_, err := NewExtractor().Extract(archive)
	if err == nil || !strings.Contains(err.Error(), "refusing to write through symlink") {
		t.Fatalf("expected symlink error, got %v", err)
	}
	if _, err := os.Lstat(filepath.Join(dir, "escaped.txt")); !os.IsNotExist(err) {
		t.Errorf("file written outside extraction root: %v", err)
	}
}

func TestIsPathWithinDirectory(t *testing.T) {
	base := filepath.Join(string(os.PathSeparator), "tmp", "root")

	tests := []struct {
		target string
		want   bool
	}{
		{filepath.Join(base, "a", "b"), true},
		{base, true},
		{filepath.Join(base, "..", "other"), false},
		{base + "-sibling", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := isPathWithinDirectory(tt.target, base); got != tt.want {
				t.Errorf("isPathWithinDirectory(%s) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestEntryTargetSkipsRoot(t *testing.T) {
	for _, name := range []string{"./", ".", ""} {
		target, err := entryTarget(t.TempDir(), name)
		if err != nil {
			t.Errorf("entryTarget(%q) error: %v", name, err)
		}
		if target != "" {
			t.Errorf("entryTarget(%q) = %q, want empty", name, target)
		}
	}

	if _, err := entryTarget(t.TempDir(), "a/../../b"); err == nil || !strings.Contains(err.Error(), "illegal file path") {
		t.Errorf("expected illegal file path error, got %v", err)
	}
}
