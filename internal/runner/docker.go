package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ashureev/codeedge/internal/config"
	"github.com/ashureev/codeedge/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	// Resource limits per run.
	memoryLimitBytes = 128 * 1024 * 1024 // 128MB
	cpuQuota         = 50000             // 0.5 CPU
	pidsLimit        = 64

	runnerUser    = "65534:65534" // nobody
	runnerWorkDir = "/tmp"
	removeTimeout = 10 * time.Second
)

// DockerExecutor runs each snippet in a throwaway, network-less container.
type DockerExecutor struct {
	cli       *client.Client
	image     string
	runtime   string // "" = default (runc), "runsc" = gVisor
	timeout   time.Duration
	maxOutput int
}

// NewDockerExecutor connects to the Docker daemon from the environment.
func NewDockerExecutor(cfg config.RunnerConfig) (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxOutput := cfg.MaxOutput
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutput
	}

	runtime := cfg.Runtime
	if runtime == "" {
		runtime = "default"
	}
	slog.Info("Docker code runner initialized", "image", cfg.Image, "runtime", runtime)

	return &DockerExecutor{
		cli:       cli,
		image:     cfg.Image,
		runtime:   cfg.Runtime,
		timeout:   timeout,
		maxOutput: maxOutput,
	}, nil
}

// EnsureImage pulls the runner image when it is not present locally.
func (d *DockerExecutor) EnsureImage(ctx context.Context) error {
	if _, err := d.cli.ImageInspect(ctx, d.image); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", d.image, err)
	}

	slog.Info("Pulling code runner image", "image", d.image)
	rc, err := d.cli.ImagePull(ctx, d.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	defer func() { _ = rc.Close() }()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", d.image, err)
	}
	return nil
}

// Close releases the Docker client.
func (d *DockerExecutor) Close() error {
	return d.cli.Close()
}

// containerSpec returns the hardened container definition for source.
func (d *DockerExecutor) containerSpec(source string) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:           d.image,
		Cmd:             []string{"python3", "-c", source},
		User:            runnerUser,
		WorkingDir:      runnerWorkDir,
		Env:             []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8", "PYTHONUNBUFFERED=1"},
		NetworkDisabled: true,
		Labels:          map[string]string{"app": "codeedge", "role": "code-runner"},
	}

	hostCfg := &container.HostConfig{
		Runtime:        d.runtime,
		NetworkMode:    container.NetworkMode("none"),
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{runnerWorkDir: "rw,noexec,nosuid,size=16m"},
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:     memoryLimitBytes,
			MemorySwap: memoryLimitBytes,
			CPUQuota:   cpuQuota,
			PidsLimit:  ptr(int64(pidsLimit)),
		},
	}
	return cfg, hostCfg
}

// Execute implements Executor.
func (d *DockerExecutor) Execute(ctx context.Context, source string) (domain.CodeExecutionResult, error) {
	if len(source) > MaxSourceBytes {
		return tooLarge(), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cfg, hostCfg := d.containerSpec(source)
	resp, err := d.cli.ContainerCreate(runCtx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		if isDeadline(runCtx.Err()) {
			return timedOut(d.timeout, NewTailBuffer(1)), nil
		}
		return domain.CodeExecutionResult{}, fmt.Errorf("create container: %w", err)
	}
	defer d.remove(resp.ID)

	if err := d.cli.ContainerStart(runCtx, resp.ID, container.StartOptions{}); err != nil {
		return domain.CodeExecutionResult{}, fmt.Errorf("start container %s: %w", resp.ID, err)
	}

	exitCode, waitErr := d.wait(runCtx, resp.ID)

	stdout := NewTailBuffer(d.maxOutput)
	stderr := NewTailBuffer(d.maxOutput)
	if err := d.collectLogs(ctx, resp.ID, stdout, stderr); err != nil {
		slog.Warn("Failed to read runner logs", "container_id", resp.ID, "error", err)
	}

	switch {
	case waitErr == nil:
		return finished(int(exitCode), stdout, stderr), nil
	case isDeadline(runCtx.Err()):
		return timedOut(d.timeout, stdout), nil
	default:
		return domain.CodeExecutionResult{}, waitErr
	}
}

func (d *DockerExecutor) wait(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := d.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("wait for container %s: %w", id, err)
	case status := <-statusCh:
		if status.Error != nil {
			return 0, fmt.Errorf("wait for container %s: %s", id, status.Error.Message)
		}
		return status.StatusCode, nil
	}
}

func (d *DockerExecutor) collectLogs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()

	rc, err := d.cli.ContainerLogs(logCtx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return fmt.Errorf("container logs: %w", err)
	}
	defer func() { _ = rc.Close() }()

	// Without a TTY the log stream is multiplexed.
	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil {
		return fmt.Errorf("demultiplex logs: %w", err)
	}
	return nil
}

// remove force-removes the container, killing it if still running.
func (d *DockerExecutor) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("Failed to remove runner container", "container_id", id, "error", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
