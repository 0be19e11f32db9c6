package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/config"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRunner runs scanner images on the local Docker engine.
type DockerRunner struct {
	DCli *client.Client
}

var _ ContainerRunner = (*DockerRunner)(nil)

// NewDockerRunner connects using DOCKER_HOST and friends from the environment.
func NewDockerRunner() (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("init docker environment failed: %w", err)
	}

	return &DockerRunner{DCli: cli}, nil
}

func (dr *DockerRunner) Close() error {
	return dr.DCli.Close()
}

func (dr *DockerRunner) ensureImage(ctx context.Context, image string) error {
	_, _, err := dr.DCli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return err
	}

	log.Printf("%s", config.Green(fmt.Sprintf("Pulling image %s", image)))
	reader, err := dr.DCli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", image, err)
	}
	defer reader.Close()

	// the pull finishes only once the progress stream is drained
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Run creates, starts and waits for the container. The container is always
// force-removed, including when ctx expires.
func (dr *DockerRunner) Run(ctx context.Context, image string, command []string, mountDir string) ([]byte, error) {
	if err := dr.ensureImage(ctx, image); err != nil {
		return nil, err
	}

	resp, err := dr.DCli.ContainerCreate(ctx,
		&container.Config{
			Image:      image,
			Cmd:        command,
			WorkingDir: MountPoint,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{
				{
					Type:   mount.TypeBind,
					Source: mountDir,
					Target: MountPoint,
				},
			},
		}, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("create container from %s: %w", image, err)
	}

	defer func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := dr.DCli.ContainerRemove(rmCtx, resp.ID, types.ContainerRemoveOptions{Force: true})
		if err != nil {
			log.Printf("failed to remove container %s, error: %v", resp.ID[:12], err)
		}
	}()

	if err := dr.DCli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := dr.DCli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("wait container: %w", err)
		}
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("wait container: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	}

	logs, err := dr.DCli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("read container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("demultiplex container logs: %w", err)
	}

	if exitCode != 0 {
		return stdout.Bytes(), &ExitError{Image: image, Code: exitCode, Stderr: stderr.String()}
	}

	return stdout.Bytes(), nil
}
