package service

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// dockerClient is the subset of the Docker Engine API client in use.
type dockerClient interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	Close() error
}

// DockerAPI talks to the Docker Engine over its API socket.
type DockerAPI struct {
	cli         dockerClient
	stopTimeout time.Duration
}

// NewDockerAPI connects using DOCKER_HOST and friends, or host if set.
func NewDockerAPI(host string, stopTimeout time.Duration) (*DockerAPI, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerAPI{cli: cli, stopTimeout: stopTimeout}, nil
}

func (d *DockerAPI) Close() error {
	return d.cli.Close()
}

func (d *DockerAPI) inspect(ctx context.Context, name string) (container.InspectResponse, error) {
	resp, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return resp, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return resp, fmt.Errorf("inspecting %s: %w", name, err)
	}
	return resp, nil
}

func (d *DockerAPI) Exists(ctx context.Context, name string) (bool, error) {
	_, err := d.inspect(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *DockerAPI) IsRunning(ctx context.Context, name string) (bool, error) {
	resp, err := d.inspect(ctx, name)
	if err != nil {
		return false, err
	}
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return false, fmt.Errorf("inspecting %s: no state reported", name)
	}
	return resp.State.Running, nil
}

func (d *DockerAPI) Stop(ctx context.Context, name string) error {
	opts := container.StopOptions{}
	if d.stopTimeout > 0 {
		secs := int(d.stopTimeout.Seconds())
		opts.Timeout = &secs
	}
	return d.cli.ContainerStop(ctx, name, opts)
}

func (d *DockerAPI) Start(ctx context.Context, name string) error {
	return d.cli.ContainerStart(ctx, name, container.StartOptions{})
}
