package docker

import "context"

// =============================================================================
// Client Interface
// =============================================================================

// Client is the Docker surface the release pipeline needs: building an
// image from a local context, tagging it, and pushing it to a registry.
type Client interface {
	// Ping checks if the Docker daemon is reachable.
	Ping(ctx context.Context) error

	// BuildImage builds an image from the given spec and tags it.
	BuildImage(ctx context.Context, spec BuildSpec) error

	// Login verifies registry credentials against the registry.
	Login(ctx context.Context, auth RegistryAuth) error

	// PushImage pushes a tagged image to its registry.
	PushImage(ctx context.Context, ref string, auth RegistryAuth) error

	// Close releases the client connection.
	Close() error
}

// =============================================================================
// Specs
// =============================================================================

// BuildSpec describes one image build.
type BuildSpec struct {
	// ContextDir is the build context directory.
	ContextDir string

	// Dockerfile is the path of the Dockerfile relative to ContextDir.
	Dockerfile string

	// Tags are the references applied to the built image.
	Tags []string

	// Labels are applied to the built image.
	Labels map[string]string

	// BuildArgs are passed through to the build.
	BuildArgs map[string]*string
}

// RegistryAuth holds registry credentials.
type RegistryAuth struct {
	Username      string
	Password      string
	ServerAddress string
}
