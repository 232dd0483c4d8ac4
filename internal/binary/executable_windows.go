//go:build windows

package binary

// checkExecutable is a no-op on Windows, where executability follows the
// file extension rather than a permission bit.
func checkExecutable(path string) error {
	return nil
}
