// Package docker runs color-transfer workers as containers on the host
// Docker daemon. One container per invocation: create, start, wait under the
// job deadline, demux logs, classify, remove. An alternative to the exec
// runtime for deployments where worker environments are containerized.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"colorwerkz/internal/method"
	"colorwerkz/internal/transfer"
	"colorwerkz/internal/worker"
)

// Invoker implements transfer.Invoker on the Docker API.
type Invoker struct {
	client       *client.Client
	cfg          worker.Config
	workspaceDir string // bind-mounted into each container at the same path
	memoryMB     int64  // per-container memory limit, 0 for none
}

// Config holds configuration for the Docker invoker.
type Config struct {
	Worker       worker.Config
	WorkspaceDir string // Host directory holding inputs and outputs
	MemoryMB     int    // Per-container memory limit in MB (0 = unlimited)
}

// NewInvoker connects to the Docker daemon.
func NewInvoker(cfg Config) (*Invoker, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Invoker{
		client:       dockerClient,
		cfg:          cfg.Worker,
		workspaceDir: cfg.WorkspaceDir,
		memoryMB:     int64(cfg.MemoryMB),
	}, nil
}

// Invoke runs one worker container for the job and classifies the outcome.
// Never returns an error; every failure mode becomes a failure Result.
func (d *Invoker) Invoke(ctx context.Context, profile *method.Profile, job transfer.Job) transfer.Result {
	start := time.Now()

	timeout := job.Options.Timeout
	if timeout <= 0 {
		timeout = profile.DefaultTimeout
	}

	containerID, err := d.createContainer(ctx, profile, job)
	if err != nil {
		return worker.Spawn(job, profile, time.Since(start), err)
	}
	// Cleanup never uses the job context: a timed-out context must not
	// leave containers behind.
	defer d.removeContainer(containerID)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.client.ContainerStart(runCtx, containerID, container.StartOptions{}); err != nil {
		return worker.Spawn(job, profile, time.Since(start), err)
	}

	exitCode, waitErr := d.waitForExit(runCtx, containerID)
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		d.kill(containerID)
	}
	elapsed := time.Since(start)

	stdout, stderr, logErr := d.collectLogs(containerID)

	switch {
	case stdout.Exceeded() || stderr.Exceeded():
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassOutputLimitExceeded,
			Detail:         fmt.Sprintf("worker output exceeded %d bytes", d.cfg.MaxOutputBytes),
		})

	case timedOut:
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassTimeout,
			Detail:         fmt.Sprintf("worker did not finish within %s", timeout),
			Timeout:        timeout,
		})

	case waitErr != nil:
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassExecutionFailed,
			ExitCode:       exitCode,
			Detail:         waitErr.Error(),
		})

	case exitCode != 0:
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassExecutionFailed,
			ExitCode:       exitCode,
			Detail:         worker.Tail(stderr.Bytes(), worker.MaxStderrTail),
		})
	}

	if logErr != nil {
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassMalformedOutput,
			Detail:         fmt.Sprintf("failed to read worker logs: %v", logErr),
		})
	}

	return worker.ResultFromOutput(job, profile, stdout.Bytes(), elapsed)
}

// Ready pings the Docker daemon. Implements health.ReadinessChecker.
func (d *Invoker) Ready(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// Close releases the Docker client.
func (d *Invoker) Close() error {
	return d.client.Close()
}

func (d *Invoker) createContainer(ctx context.Context, profile *method.Profile, job transfer.Job) (string, error) {
	if err := d.pullImageIfNeeded(ctx, profile.Image); err != nil {
		return "", err
	}

	containerConfig := &container.Config{
		Image: profile.Image,
		Cmd:   []string{"--args", string(worker.EncodeArgs(job))},
		Labels: map[string]string{
			"transfer.job":    job.ID,
			"transfer.method": profile.Name,
			"managed-by":      "colorwerkz",
		},
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: d.workspaceDir,
				Target: d.workspaceDir,
			},
		},
		Resources: container.Resources{
			Memory: d.memoryMB * 1024 * 1024,
		},
	}

	containerName := fmt.Sprintf("transfer-%s", job.ID)
	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (d *Invoker) waitForExit(ctx context.Context, containerID string) (int, error) {
	statusCh, errCh := d.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case err := <-errCh:
		return -1, err
	case status := <-statusCh:
		if status.Error != nil {
			return int(status.StatusCode), fmt.Errorf("%s", status.Error.Message)
		}
		return int(status.StatusCode), nil
	}
}

// kill forcibly terminates the container, with a bounded wait so a stuck
// container cannot hang the invocation past the kill grace.
func (d *Invoker) kill(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.KillGrace)
	defer cancel()

	if err := d.client.ContainerKill(ctx, containerID, "KILL"); err != nil {
		slog.Warn("Failed to kill worker container", "containerId", containerID, "error", err)
		return
	}
	statusCh, errCh := d.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
	case <-errCh:
	case <-statusCh:
	}
}

// collectLogs reads the container's stdout and stderr, each capped.
func (d *Invoker) collectLogs(containerID string) (stdout, stderr *worker.CappedBuffer, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.KillGrace)
	defer cancel()

	stdout = worker.NewCappedBuffer(d.cfg.MaxOutputBytes, cancel)
	stderr = worker.NewCappedBuffer(d.cfg.MaxOutputBytes, cancel)

	reader, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return stdout, stderr, err
	}
	defer reader.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, reader); err != nil && !stdout.Exceeded() && !stderr.Exceeded() && !errors.Is(err, context.DeadlineExceeded) {
		return stdout, stderr, err
	}
	return stdout, stderr, nil
}

func (d *Invoker) removeContainer(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		slog.Warn("Failed to remove worker container", "containerId", containerID, "error", err)
	}
}

func (d *Invoker) pullImageIfNeeded(ctx context.Context, imageName string) error {
	_, err := d.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

var _ transfer.Invoker = (*Invoker)(nil)
