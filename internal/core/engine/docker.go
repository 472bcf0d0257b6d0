package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog/log"
)

// DockerEngine runs the imputation image directly through the Docker
// API instead of shelling out to compose. One container per run; the
// input and output directories are bind-mounted at the paths the image
// expects and the container is removed after its logs are collected.
type DockerEngine struct {
	cli         *client.Client
	imageRef    string
	inputMount  string
	outputMount string
}

func NewDockerEngine(imageRef, inputMount, outputMount string) (*DockerEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerEngine{
		cli:         cli,
		imageRef:    imageRef,
		inputMount:  inputMount,
		outputMount: outputMount,
	}, nil
}

func (e *DockerEngine) Name() string { return "docker" }

func (e *DockerEngine) Run(ctx context.Context, spec RunSpec) (Result, error) {
	cfg := &container.Config{
		Image: e.imageRef,
		Env: []string{
			"JOB_ID=" + spec.JobID,
			"JOB_UUID=" + spec.JobID,
			"INPUT_MOUNT=" + e.inputMount,
			"OUTPUT_MOUNT=" + e.outputMount,
		},
		Labels: map[string]string{
			"imputation.managed": "true",
			"imputation.job_id":  spec.JobID,
		},
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: spec.InputDir, Target: e.inputMount},
			{Type: mount.TypeBind, Source: spec.OutputDir, Target: e.outputMount},
		},
	}

	name := "imputation-" + spec.JobID
	resp, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if client.IsErrNotFound(err) {
		reader, pullErr := e.cli.ImagePull(ctx, e.imageRef, image.PullOptions{})
		if pullErr != nil {
			return Result{}, fmt.Errorf("pull image %s: %w", e.imageRef, pullErr)
		}
		_, _ = io.Copy(io.Discard, reader)
		_ = reader.Close()
		resp, err = e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create container: %w", err)
	}
	defer func() {
		if rmErr := e.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			log.Warn().Err(rmErr).Str("job_id", spec.JobID).Msg("container remove failed")
		}
	}()

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("start container: %w", err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		return Result{}, fmt.Errorf("wait container: %w", err)
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	stdout, stderr, err := e.collectLogs(ctx, resp.ID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ExitCode: int(exitCode),
		Stdout:   stdout,
		Stderr:   stderr,
	}, nil
}

func (e *DockerEngine) collectLogs(ctx context.Context, containerID string) (string, string, error) {
	logs, err := e.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("container logs: %w", err)
	}
	defer func() { _ = logs.Close() }()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return "", "", fmt.Errorf("demux logs: %w", err)
	}
	return stdout.String(), stderr.String(), nil
}
