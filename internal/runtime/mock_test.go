package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// mockDocker is an in-memory DockerAPI that records the order of
// lifecycle calls.
type mockDocker struct {
	mu sync.Mutex

	// calls records "op:name" entries in invocation order.
	calls []string

	// healthyAfter maps a container name to the number of inspects
	// before it reports healthy (0 = immediately).
	healthyAfter map[string]int
	inspects     map[string]int

	// failCreate makes ContainerCreate fail for the named container.
	failCreate string

	running map[string]bool
}

func newMockDocker() *mockDocker {
	return &mockDocker{
		healthyAfter: make(map[string]int),
		inspects:     make(map[string]int),
		running:      make(map[string]bool),
	}
}

func (m *mockDocker) record(op, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op+":"+name)
}

func (m *mockDocker) callsFor(op string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []string
	for _, call := range m.calls {
		if strings.HasPrefix(call, op+":") {
			result = append(result, strings.TrimPrefix(call, op+":"))
		}
	}
	return result
}

func (m *mockDocker) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, nil
}

func (m *mockDocker) ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error) {
	m.record("pull", ref)
	return io.NopCloser(strings.NewReader("{}")), nil
}

func (m *mockDocker) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	if containerName == m.failCreate {
		return container.CreateResponse{}, fmt.Errorf("create %s: boom", containerName)
	}
	m.record("create", containerName)
	return container.CreateResponse{ID: containerName}, nil
}

func (m *mockDocker) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	m.record("start", containerID)
	m.mu.Lock()
	m.running[containerID] = true
	m.mu.Unlock()
	return nil
}

func (m *mockDocker) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	m.mu.Lock()
	known := m.running[containerID]
	m.mu.Unlock()
	if !known {
		return errdefs.NotFound(fmt.Errorf("no such container: %s", containerID))
	}
	m.record("stop", containerID)
	return nil
}

func (m *mockDocker) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	m.record("remove", containerID)
	m.mu.Lock()
	delete(m.running, containerID)
	m.mu.Unlock()
	return nil
}

func (m *mockDocker) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	m.mu.Lock()
	m.inspects[containerID]++
	healthy := m.inspects[containerID] > m.healthyAfter[containerID]
	m.mu.Unlock()

	m.record("inspect", containerID)

	status := "starting"
	if healthy {
		status = "healthy"
	}

	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			State: &types.ContainerState{
				Running: true,
				Health:  &types.Health{Status: status},
			},
		},
	}, nil
}

func (m *mockDocker) Close() error {
	return nil
}
