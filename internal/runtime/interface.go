package runtime

import (
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// DockerAPI is the subset of the Docker SDK client the executor needs.
// It enables mocking for unit tests without a running Docker daemon.
type DockerAPI interface {
	// Ping tests the connection to the Docker daemon.
	Ping(ctx context.Context) (types.Ping, error)

	// ImagePull pulls an image from a registry.
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)

	// ContainerCreate creates a container.
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)

	// ContainerStart starts a created container.
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error

	// ContainerStop stops a running container.
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error

	// ContainerRemove removes a container.
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error

	// ContainerInspect returns detailed information about a container.
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)

	// Close closes the client connection.
	Close() error
}
