package runtime

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/envfile"
)

// Default health-wait tuning, used when a probe spec leaves them unset.
const (
	defaultProbeInterval = 2 * time.Second
	defaultReadyTimeout  = 2 * time.Minute
	stopTimeoutSeconds   = 10
)

// Executor runs a composed topology against a Docker daemon.
type Executor struct {
	api     DockerAPI
	project string
	workDir string

	// OnProgress, when set, receives per-service lifecycle events
	// (pull, create, start, wait, stop, remove).
	OnProgress func(service, phase string)

	// ReadyTimeout bounds the health wait per service.
	ReadyTimeout time.Duration

	pollInterval time.Duration
}

// NewExecutor creates an executor for the given project name. Container
// names are prefixed with the project; workDir anchors relative env_file
// references.
func NewExecutor(api DockerAPI, project, workDir string) *Executor {
	return &Executor{
		api:          api,
		project:      project,
		workDir:      workDir,
		ReadyTimeout: defaultReadyTimeout,
		pollInterval: defaultProbeInterval,
	}
}

// Up starts every service in topology start order. A service with a
// health probe must report healthy before its dependents start; a
// disabled probe only waits for the running state.
func (e *Executor) Up(ctx context.Context, topo *compose.Topology) error {
	for _, name := range topo.StartOrder() {
		svc := topo.Service(name)

		if err := e.startService(ctx, svc); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}

		e.progress(name, "wait")
		if err := e.waitReady(ctx, svc); err != nil {
			return fmt.Errorf("wait for %s: %w", name, err)
		}
	}

	return nil
}

// Down stops and removes every service in stop order, the exact reverse
// of start order. Missing containers are skipped.
func (e *Executor) Down(ctx context.Context, topo *compose.Topology) error {
	for _, name := range topo.StopOrder() {
		id := e.containerName(name)

		e.progress(name, "stop")
		timeout := stopTimeoutSeconds
		if err := e.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("stop %s: %w", name, err)
		}

		e.progress(name, "remove")
		if err := e.api.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}

	return nil
}

func (e *Executor) containerName(service string) string {
	return e.project + "-" + service
}

func (e *Executor) progress(service, phase string) {
	if e.OnProgress != nil {
		e.OnProgress(service, phase)
	}
}

func (e *Executor) startService(ctx context.Context, svc *compose.ServiceDefinition) error {
	if svc.Image != "" && svc.Build == nil {
		e.progress(svc.Name, "pull")
		if err := e.pullImage(ctx, svc.Image); err != nil {
			return err
		}
	}

	config, hostConfig, err := e.containerSpec(ctx, svc)
	if err != nil {
		return err
	}

	e.progress(svc.Name, "create")
	created, err := e.api.ContainerCreate(ctx, config, hostConfig, nil, nil, e.containerName(svc.Name))
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	e.progress(svc.Name, "start")
	if err := e.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}

	return nil
}

func (e *Executor) pullImage(ctx context.Context, ref string) error {
	reader, err := e.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	return nil
}

// containerSpec translates a service definition into Docker create
// parameters.
func (e *Executor) containerSpec(ctx context.Context, svc *compose.ServiceDefinition) (*container.Config, *container.HostConfig, error) {
	env, err := e.resolveEnv(ctx, svc)
	if err != nil {
		return nil, nil, err
	}

	exposed, bindings, err := nat.ParsePortSpecs([]string(svc.Ports))
	if err != nil {
		return nil, nil, fmt.Errorf("parse ports: %w", err)
	}

	config := &container.Config{
		Image:        svc.Image,
		Env:          env,
		Entrypoint:   []string(svc.Entrypoint),
		Cmd:          []string(svc.Command),
		Labels:       map[string]string(svc.Labels),
		ExposedPorts: exposed,
		Healthcheck:  healthConfig(svc.Healthcheck),
	}

	hostConfig := &container.HostConfig{
		Binds:        []string(svc.Volumes),
		PortBindings: bindings,
	}
	if svc.Restart != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(svc.Restart),
		}
	}

	return config, hostConfig, nil
}

func (e *Executor) resolveEnv(ctx context.Context, svc *compose.ServiceDefinition) ([]string, error) {
	return ResolveEnvironment(ctx, e.workDir, svc)
}

// ResolveEnvironment merges a service's env_file references (in order,
// later wins) with its inline environment entries, which always win.
// Relative env_file paths are anchored at workDir.
func ResolveEnvironment(ctx context.Context, workDir string, svc *compose.ServiceDefinition) ([]string, error) {
	paths := make([]string, 0, len(svc.EnvFiles))
	for _, ref := range svc.EnvFiles {
		paths = append(paths, joinWorkDir(workDir, ref))
	}

	env, err := envfile.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	for k, v := range svc.Environment {
		env[k] = v
	}

	return envfile.Flatten(env), nil
}

// healthConfig translates a probe spec. A disabled probe becomes the
// explicit no-op probe so the container reports no health state.
func healthConfig(hc *compose.Healthcheck) *container.HealthConfig {
	if hc == nil {
		return nil
	}

	config := &container.HealthConfig{
		Test:    hc.Probe(),
		Retries: hc.Retries,
	}
	config.Interval = parseDuration(hc.Interval)
	config.Timeout = parseDuration(hc.Timeout)
	config.StartPeriod = parseDuration(hc.StartPeriod)
	return config
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// waitReady polls the container until it is running and, when a probe
// is configured, healthy.
func (e *Executor) waitReady(ctx context.Context, svc *compose.ServiceDefinition) error {
	needHealthy := svc.Healthcheck != nil && !svc.Healthcheck.Disabled()

	deadline := e.ReadyTimeout
	if deadline <= 0 {
		deadline = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	name := e.containerName(svc.Name)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		inspect, err := e.api.ContainerInspect(ctx, name)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}

		state := inspect.State
		switch {
		case state == nil:
			// Keep polling until the daemon reports a state.
		case state.Dead || (!state.Running && state.ExitCode != 0):
			return fmt.Errorf("exited with code %d", state.ExitCode)
		case state.Running && !needHealthy:
			return nil
		case state.Running && state.Health != nil && state.Health.Status == "healthy":
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func joinWorkDir(workDir, ref string) string {
	if workDir == "" || len(ref) > 0 && ref[0] == '/' {
		return ref
	}
	return workDir + "/" + ref
}
