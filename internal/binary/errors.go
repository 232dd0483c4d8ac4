package binary

import "fmt"

// DownloadError reports a transfer that failed or did not complete.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ExtractionError reports an unreadable or unsupported archive.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// LayoutError reports that an expected directory or file is missing from an
// extraction root. Path is the path that was expected.
type LayoutError struct {
	Path   string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// PermissionError reports that a file could not be made executable.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("mark %s executable: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// VerificationError reports an archive that failed digest or signature checks.
type VerificationError struct {
	Path   string
	Method VerificationMethod
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s verification of %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// UnsupportedSourceError reports that no download URL can be derived: the
// request names neither a URL nor an existing local path, and the driver has
// no release source.
type UnsupportedSourceError struct {
	Driver   string
	Strategy Strategy
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("driver %s has no release source for %s resolution; configure a download URL or a local binary path",
		e.Driver, e.Strategy)
}
