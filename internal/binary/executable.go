package binary

import (
	"fmt"
	"os"
)

// MarkExecutable adds execute permission for user, group and others to path
// and confirms the host now reports it executable.
func MarkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &PermissionError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &PermissionError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		return &PermissionError{Path: path, Err: err}
	}

	if err := checkExecutable(path); err != nil {
		return &PermissionError{Path: path, Err: err}
	}

	return nil
}
