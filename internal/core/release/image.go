package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultRegistry is the registry images are published to.
	DefaultRegistry = "ghcr.io"

	// DefaultNamespace is the organization under which images live.
	DefaultNamespace = "onblockio"
)

var (
	ErrEmptyImageName = errors.New("image name is empty")
	ErrInvalidImage   = errors.New("invalid image reference")
)

// =============================================================================
// Image References
// =============================================================================

// ImageRef composes the fully qualified, tagged reference an image is
// pushed as. The repository name is always lowercased; registries reject
// mixed-case paths.
//
// Example:
//
//	ImageRef("ghcr.io", "onblockio", "MetaCrawler", "1.2.3")
//	// returns "ghcr.io/onblockio/metacrawler:1.2.3"
func ImageRef(registry, namespace, name, version string) (string, error) {
	if name == "" {
		return "", ErrEmptyImageName
	}
	if version == "" {
		return "", ErrEmptyRef
	}
	if registry == "" {
		registry = DefaultRegistry
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	ref := fmt.Sprintf("%s/%s/%s:%s",
		registry,
		strings.ToLower(namespace),
		strings.ToLower(name),
		version,
	)

	// Validate against the registry grammar so a bad name fails at
	// derivation time instead of at push time.
	named, err := reference.ParseNamed(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidImage, ref, err)
	}
	if _, ok := named.(reference.Tagged); !ok {
		return "", fmt.Errorf("%w: %q has no tag", ErrInvalidImage, ref)
	}

	return ref, nil
}

// RefForPush derives the complete push reference for a version-control
// ref in one step.
func RefForPush(registry, namespace, name, vcsRef string) (string, error) {
	version, err := DeriveVersion(vcsRef)
	if err != nil {
		return "", err
	}
	return ImageRef(registry, namespace, name, version)
}
