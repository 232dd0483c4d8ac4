package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
)

// Format is an archive format.
type Format string

// Supported archive formats
const (
	FormatUnknown Format = ""
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarXz   Format = "tar.xz"
	FormatTarBz2  Format = "tar.bz2"
	FormatTarZst  Format = "tar.zst"
	FormatTarLz   Format = "tar.lz"
	FormatZip     Format = "zip"
)

// formatSuffixes maps file suffixes to formats. Compound suffixes come
// before ".tar" so they match first.
var formatSuffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar.lz", FormatTarLz},
	{".tlz", FormatTarLz},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

// DetectFormat detects the archive format from a file name.
func DetectFormat(name string) Format {
	format, _ := detectFormat(name)
	return format
}

func detectFormat(name string) (Format, string) {
	lower := strings.ToLower(name)
	for _, fs := range formatSuffixes {
		if strings.HasSuffix(lower, fs.suffix) {
			return fs.format, fs.suffix
		}
	}
	return FormatUnknown, ""
}

// Extractor handles archive extraction. It implements ArchiveExtractor.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archivePath next to itself and returns the extraction root:
// the archive path without its archive suffix. An existing root is replaced.
// Extraction happens in a temporary sibling directory that is renamed into
// place, so a failed extraction never leaves a partial root behind.
func (e *Extractor) Extract(archivePath string) (string, error) {
	format, suffix := detectFormat(archivePath)
	if format == FormatUnknown {
		return "", &ExtractionError{Archive: archivePath, Err: errors.New("unsupported archive format")}
	}

	root := archivePath[:len(archivePath)-len(suffix)]
	if filepath.Base(root) == "" || strings.HasSuffix(root, string(os.PathSeparator)) {
		root = archivePath + ".d"
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(root), "."+filepath.Base(root)+".extract-*")
	if err != nil {
		return "", &ExtractionError{Archive: archivePath, Err: fmt.Errorf("create temp dir: %w", err)}
	}

	if err := e.ExtractTo(archivePath, format, tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		return "", &ExtractionError{Archive: archivePath, Err: err}
	}

	if err := os.RemoveAll(root); err != nil {
		os.RemoveAll(tmpDir)
		return "", &ExtractionError{Archive: archivePath, Err: fmt.Errorf("remove previous extraction: %w", err)}
	}
	if err := os.Rename(tmpDir, root); err != nil {
		os.RemoveAll(tmpDir)
		return "", &ExtractionError{Archive: archivePath, Err: fmt.Errorf("rename extraction dir: %w", err)}
	}

	return root, nil
}

// ExtractTo extracts archivePath in the given format into destDir.
func (e *Extractor) ExtractTo(archivePath string, format Format, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	// Work on the real path so lexical checks match what the kernel sees
	realDest, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return fmt.Errorf("resolve dest dir: %w", err)
	}

	if err := e.extract(archivePath, format, realDest); err != nil {
		return err
	}
	return verifyLinks(realDest)
}

func (e *Extractor) extract(archivePath string, format Format, destDir string) error {
	if format == FormatZip {
		return e.extractZip(archivePath, destDir)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	var r io.Reader
	switch format {
	case FormatTar:
		r = file
	case FormatTarGz:
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case FormatTarXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("create xz reader: %w", err)
		}
		r = xzr
	case FormatTarBz2:
		r = bzip2.NewReader(file)
	case FormatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case FormatTarLz:
		lr, err := lzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("create lzip reader: %w", err)
		}
		r = lr
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}

	return extractTarReader(tar.NewReader(r), destDir)
}

// extractTarReader extracts every entry of tr into destDir
func extractTarReader(tr *tar.Reader, destDir string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := entryTarget(destDir, header.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}
		if err := checkEntryPath(destDir, target, header.Typeflag == tar.TypeSymlink); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destDir); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip other types (hard links, devices, fifos)
			continue
		}
	}
}

// extractZip extracts a zip archive into destDir
func (e *Extractor) extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := entryTarget(destDir, f.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		mode := f.Mode()
		if err := checkEntryPath(destDir, target, mode&os.ModeSymlink != 0); err != nil {
			return err
		}
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := validateSymlinkTarget(linkname, target, destDir); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Symlink(linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", f.Name, err)
			}
			perm := mode.Perm()
			if perm == 0 {
				// Archives written on Windows often carry no Unix mode
				perm = 0644
			}
			err = writeFile(target, rc, perm)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	return string(data), nil
}

// entryTarget maps an archive entry name to a path inside destDir. It returns
// an empty path for entries that name the root itself.
func entryTarget(destDir, name string) (string, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(name), "./")
	if clean == "" || clean == "." {
		return "", nil
	}

	target := filepath.Join(destDir, filepath.FromSlash(clean))
	if !isPathWithinDirectory(target, destDir) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}

	return target, nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// isPathWithinDirectory checks if targetPath is contained within basePath
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}

	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects absolute link targets and targets that
// resolve outside destDir.
func validateSymlinkTarget(linkTarget, linkLocation, destDir string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}

	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destDir) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s", linkLocation, linkTarget)
	}

	return nil
}

// checkEntryPath fails when an existing component of target below destDir
// is a symlink, so no entry is ever written through a link. For a new
// symlink only the parents are checked; the link itself must not exist yet.
func checkEntryPath(destDir, target string, isLink bool) error {
	rel, err := filepath.Rel(destDir, target)
	if err != nil {
		return fmt.Errorf("illegal file path: %s", target)
	}

	parts := strings.Split(rel, string(os.PathSeparator))
	cur := destDir
	for i, part := range parts {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if isLink && i == len(parts)-1 {
			return fmt.Errorf("duplicate symlink entry: %s", target)
		}
		return fmt.Errorf("refusing to write through symlink: %s", cur)
	}
	return nil
}

// verifyLinks walks destDir after extraction and rejects any symlink that
// resolves outside it. Dangling links are left alone.
func verifyLinks(destDir string) error {
	return filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if !isPathWithinDirectory(resolved, destDir) {
			return fmt.Errorf("symlink resolves outside destination directory: %s -> %s", path, resolved)
		}
		return nil
	})
}
