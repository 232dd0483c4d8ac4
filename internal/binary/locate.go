package binary

import (
	"fmt"
	"os"
	"path/filepath"
)

// binDirName is the directory holding executables in nested release layouts.
const binDirName = "bin"

// LocateNestedBin finds binaryName in the layout root/<subdir>/bin/<binaryName>.
//
// Subdirectories are taken in lexicographic order and the first one is used,
// so repeated calls on the same tree return the same path. The name match is
// exact and case-sensitive; the caller applies any platform suffix.
func LocateNestedBin(root, binaryName string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", &LayoutError{Path: root, Reason: fmt.Sprintf("cannot list extraction root (%v)", err)}
	}

	// os.ReadDir returns entries sorted by file name
	var subdir string
	for _, entry := range entries {
		if isDir(root, entry) {
			subdir = filepath.Join(root, entry.Name())
			break
		}
	}
	if subdir == "" {
		return "", &LayoutError{Path: root, Reason: "no subdirectory found"}
	}

	binDir := filepath.Join(subdir, binDirName)
	expected := filepath.Join(binDir, binaryName)

	binEntries, err := os.ReadDir(binDir)
	if err != nil {
		return "", &LayoutError{Path: expected, Reason: "binary not present at expected path"}
	}

	for _, entry := range binEntries {
		if entry.Name() != binaryName {
			continue
		}
		if info, err := os.Stat(expected); err == nil && info.Mode().IsRegular() {
			return expected, nil
		}
		break
	}

	return "", &LayoutError{Path: expected, Reason: "binary not present at expected path"}
}

// LocateFlat finds binaryName directly inside root, for archives that carry
// the executable at the top level.
func LocateFlat(root, binaryName string) (string, error) {
	expected := filepath.Join(root, binaryName)

	info, err := os.Stat(expected)
	if err != nil || !info.Mode().IsRegular() {
		return "", &LayoutError{Path: expected, Reason: "binary not present at expected path"}
	}

	return expected, nil
}

// isDir reports whether entry is a directory, following symlinks.
func isDir(parent string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
