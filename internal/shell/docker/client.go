// Package docker provides a Docker client for building and publishing
// container images.
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
)

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements the Client interface using the Docker SDK.
type DockerClient struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
func NewDockerClient(host string, logger *slog.Logger) (*DockerClient, error) {
	var opts []client.Opt
	opts = append(opts, client.FromEnv)
	opts = append(opts, client.WithAPIVersionNegotiation())

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "", "", "failed to create client", ErrConnectionFailed)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &DockerClient{cli: cli, logger: logger.With("component", "docker")}, nil
}

// Ping checks if the Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Image Operations
// =============================================================================

// BuildImage builds an image from the given spec and tags it.
func (d *DockerClient) BuildImage(ctx context.Context, spec BuildSpec) error {
	if len(spec.Tags) == 0 {
		return NewDockerError("BuildImage", "image", "", "no tags given", ErrImageBuildFailed)
	}
	ref := spec.Tags[0]

	buildContext, err := archive.TarWithOptions(spec.ContextDir, &archive.TarOptions{})
	if err != nil {
		return NewDockerError("BuildImage", "image", ref, err.Error(), ErrImageBuildFailed)
	}
	defer buildContext.Close()

	dockerfile := spec.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	resp, err := d.cli.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Dockerfile: dockerfile,
		Tags:       spec.Tags,
		Labels:     spec.Labels,
		BuildArgs:  spec.BuildArgs,
		Remove:     true,
	})
	if err != nil {
		return NewDockerError("BuildImage", "image", ref, err.Error(), ErrImageBuildFailed)
	}
	defer resp.Body.Close()

	if err := d.drainStream(resp.Body); err != nil {
		return NewDockerError("BuildImage", "image", ref, err.Error(), ErrImageBuildFailed)
	}

	return nil
}

// Login verifies registry credentials against the registry.
func (d *DockerClient) Login(ctx context.Context, auth RegistryAuth) error {
	_, err := d.cli.RegistryLogin(ctx, registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return NewDockerError("Login", "registry", auth.ServerAddress, err.Error(), ErrLoginFailed)
	}

	d.logger.Info("registry login succeeded", "registry", auth.ServerAddress, "user", auth.Username)
	return nil
}

// PushImage pushes a tagged image to its registry.
func (d *DockerClient) PushImage(ctx context.Context, ref string, auth RegistryAuth) error {
	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return NewDockerError("PushImage", "image", ref, err.Error(), ErrImagePushFailed)
	}

	reader, err := d.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encoded})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return NewDockerError("PushImage", "image", ref, "image not found", ErrImageNotFound)
		}
		return NewDockerError("PushImage", "image", ref, err.Error(), ErrImagePushFailed)
	}
	defer reader.Close()

	if err := d.drainStream(reader); err != nil {
		return NewDockerError("PushImage", "image", ref, err.Error(), ErrImagePushFailed)
	}

	return nil
}

// drainStream consumes a daemon progress stream, logging status lines and
// surfacing the embedded error message if the operation failed.
func (d *DockerClient) drainStream(r io.Reader) error {
	decoder := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if msg.Error != nil {
			return errors.New(msg.Error.Message)
		}

		if line := strings.TrimSpace(msg.Stream); line != "" {
			d.logger.Debug("docker", "output", line)
		}
		if msg.Status != "" {
			d.logger.Debug("docker", "status", msg.Status, "id", msg.ID)
		}
	}
}
