// Package release contains pure functions for deriving release versions
// and container image references from version-control refs.
package release

import (
	"errors"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyRef = errors.New("ref is empty")
)

const (
	branchPrefix = "refs/heads/"
	tagPrefix    = "refs/tags/"
)

// =============================================================================
// Version Derivation
// =============================================================================

// DeriveVersion maps a version-control ref to the version tag the built
// image is published under.
//
// The rules are:
//   - a branch ref keeps its branch name
//   - a tag ref keeps its tag name, with one leading "v" stripped
//   - the result "master" becomes "latest"
//   - a bare string without a refs/ prefix is used as-is
//
// Example:
//
//	DeriveVersion("refs/heads/master") // returns "latest"
//	DeriveVersion("refs/tags/v1.2.3") // returns "1.2.3"
//	DeriveVersion("refs/tags/1.2.3")  // returns "1.2.3"
func DeriveVersion(ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}

	version := ref
	switch {
	case strings.HasPrefix(ref, tagPrefix):
		version = strings.TrimPrefix(ref, tagPrefix)
		version = strings.TrimPrefix(version, "v")
	case strings.HasPrefix(ref, branchPrefix):
		version = strings.TrimPrefix(ref, branchPrefix)
	}

	if version == "" {
		return "", ErrEmptyRef
	}
	if version == "master" {
		return "latest", nil
	}
	return version, nil
}

// IsReleaseRef reports whether a ref is one the pipeline publishes for:
// the master branch or any v-prefixed tag.
func IsReleaseRef(ref string) bool {
	if ref == branchPrefix+"master" {
		return true
	}
	return strings.HasPrefix(ref, tagPrefix+"v")
}
