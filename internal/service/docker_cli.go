package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raoulx24/media-backup/internal/command"
)

// DockerCLI drives the docker binary, for hosts where the API socket is not
// reachable by the backup user but the CLI is (e.g. through a sudo wrapper).
type DockerCLI struct {
	run         command.Runner
	binary      string
	stopTimeout time.Duration
}

func NewDockerCLI(run command.Runner, stopTimeout time.Duration) *DockerCLI {
	return &DockerCLI{run: run, binary: "docker", stopTimeout: stopTimeout}
}

func (d *DockerCLI) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := d.run.Run(ctx, d.binary, "inspect", "--type", "container", "--format", "{{.State.Running}}", name)
	if err != nil {
		if mentionsMissing(err) {
			return false, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return false, fmt.Errorf("inspecting %s: %w", name, err)
	}
	running, err := strconv.ParseBool(strings.TrimSpace(string(out)))
	if err != nil {
		return false, fmt.Errorf("inspecting %s: unexpected output %q", name, strings.TrimSpace(string(out)))
	}
	return running, nil
}

func (d *DockerCLI) Exists(ctx context.Context, name string) (bool, error) {
	_, err := d.IsRunning(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *DockerCLI) Stop(ctx context.Context, name string) error {
	args := []string{"stop"}
	if d.stopTimeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(d.stopTimeout.Seconds())))
	}
	_, err := d.run.Run(ctx, d.binary, append(args, name)...)
	return err
}

func (d *DockerCLI) Start(ctx context.Context, name string) error {
	_, err := d.run.Run(ctx, d.binary, "start", name)
	return err
}

func mentionsMissing(err error) bool {
	var exitErr *command.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	out := strings.ToLower(exitErr.Output)
	return strings.Contains(out, "no such container") || strings.Contains(out, "no such object")
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
