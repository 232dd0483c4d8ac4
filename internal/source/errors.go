package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
)

// ErrVersionNotFound is returned when no release matches the requested version.
var ErrVersionNotFound = errors.New("version not found")

// ErrAssetNotFound is returned when a release has no asset for the platform.
var ErrAssetNotFound = errors.New("release asset not found")

// RateLimitError indicates the GitHub API rate limit was hit.
type RateLimitError struct {
	Reset         time.Time // when the limit resets
	Authenticated bool      // whether the request carried a token
	Err           error
}

func (e *RateLimitError) Error() string {
	msg := "GitHub API rate limit exceeded"
	if !e.Reset.IsZero() {
		msg += fmt.Sprintf(" (resets at %s)", e.Reset.Format(time.RFC3339))
	}
	if !e.Authenticated {
		msg += "; set " + TokenEnvVar + " for higher limits"
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// wrapGitHubError converts go-github rate limit errors into *RateLimitError
// and annotates everything else with the operation.
func wrapGitHubError(err error, op string, authenticated bool) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			Reset:         rateErr.Rate.Reset.Time,
			Authenticated: authenticated,
			Err:           err,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		re := &RateLimitError{Authenticated: authenticated, Err: err}
		if abuseErr.RetryAfter != nil {
			re.Reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return re
	}

	return fmt.Errorf("%s: %w", op, err)
}
