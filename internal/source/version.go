package source

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// pickVersion selects a tag from tags.
//
// An empty want selects the highest stable semantic version. Otherwise an
// exact tag match wins (with or without a leading "v"), then the highest tag
// satisfying want as a semver constraint such as "~2.1" or ">=0.33, <0.35".
// Tags that are not semantic versions are only reachable by exact match.
func pickVersion(tags []string, want string) (string, error) {
	want = strings.TrimSpace(want)

	if want != "" {
		bare := strings.TrimPrefix(want, "v")
		for _, tag := range tags {
			if tag == want || strings.TrimPrefix(tag, "v") == bare {
				return tag, nil
			}
		}
	}

	var constraint *semver.Constraints
	if want != "" {
		c, err := semver.NewConstraint(want)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrVersionNotFound, want)
		}
		constraint = c
	}

	var bestTag string
	var best *semver.Version
	for _, tag := range tags {
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		if constraint == nil {
			if v.Prerelease() != "" {
				continue
			}
		} else if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestTag = tag
		}
	}

	if bestTag == "" {
		if want == "" {
			return "", fmt.Errorf("%w: no stable release", ErrVersionNotFound)
		}
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, want)
	}

	return bestTag, nil
}

// normalizeVersion strips a leading "v" from a tag.
func normalizeVersion(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
