//go:build !windows

package binary

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkExecutable asks the kernel whether the current process may execute path.
func checkExecutable(path string) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("access check: %w", err)
	}
	return nil
}
