package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
)

var runningContainers = filters.Arg("status", "running")

type (
	// DockerClient is the slice of the Docker SDK the engine needs. It is
	// satisfied by *client.Client and keeps tests free of a real daemon.
	DockerClient interface {
		ImagePull(context.Context, string, image.PullOptions) (io.ReadCloser, error)
		ContainerCreate(context.Context, *container.Config, *container.HostConfig, *network.NetworkingConfig, *v1.Platform, string) (container.CreateResponse, error)
		ContainerStart(context.Context, string, container.StartOptions) error
		ContainerList(context.Context, container.ListOptions) ([]container.Summary, error)
		ContainerStop(context.Context, string, container.StopOptions) error
		ContainerRemove(context.Context, string, container.RemoveOptions) error
		ContainerInspect(context.Context, string) (container.InspectResponse, error)
	}

	// Engine wraps a Docker client with the container lifecycle operations
	// the dev server needs: pull, start, stop, list, and inspect.
	Engine struct {
		client DockerClient
	}

	// Container is a daemon-independent view of a container. Names are
	// reported without the daemon's leading "/".
	Container struct {
		Names  []string
		Image  string
		State  string
		Status string
	}

	// ContainerOptions describes a container to start. Ports maps host
	// ports to container ports; a non-positive host port lets the daemon
	// pick one.
	ContainerOptions struct {
		Name    string
		Image   string
		Env     map[string]string
		Ports   map[int]int
		Volumes []ContainerVolume
	}

	ContainerVolume struct {
		HostPath      string `yaml:"hostPath"`
		ContainerPath string `yaml:"containerPath"`
		ReadOnly      bool   `yaml:"readOnly"`
	}
)

// NewEngine wraps an initialized Docker client.
//
// Example:
//
//	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
//	if err != nil {
//		return err
//	}
//	defer cli.Close()
//
//	pg := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{})
//	if err := pg.Start(ctx); err != nil {
//		return err
//	}
func NewEngine(cl DockerClient) *Engine {
	return &Engine{client: cl}
}

// Pull fetches an image, streaming the daemon's progress to stdout.
func (e *Engine) Pull(ctx context.Context, img string) error {
	out, err := e.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull image: %s", img)
	}

	defer func() { _ = out.Close() }()
	_, _ = io.Copy(os.Stdout, out)
	return nil
}

// Start creates and starts a container from opts.
func (e *Engine) Start(ctx context.Context, opts ContainerOptions) error {
	resp, err := e.client.ContainerCreate(
		ctx,
		&container.Config{
			Image:        opts.Image,
			Env:          envList(opts.Env),
			ExposedPorts: exposedPorts(opts.Ports),
		},
		&container.HostConfig{
			PortBindings: portBindings(opts.Ports),
			Binds:        volumeBinds(opts.Volumes),
		},
		nil,
		nil,
		opts.Name,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create container: %s", opts.Name)
	}

	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return errors.Wrapf(err, "failed to start container: %s", opts.Name)
	}

	return nil
}

// List returns the running containers visible to the daemon.
func (e *Engine) List(ctx context.Context) ([]*Container, error) {
	list, err := e.client.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(runningContainers),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list running containers")
	}

	res := make([]*Container, len(list))
	for i, c := range list {
		names := make([]string, len(c.Names))
		for j, name := range c.Names {
			names[j] = strings.TrimPrefix(name, "/")
		}

		res[i] = &Container{
			Names:  names,
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
		}
	}

	return res, nil
}

// Stop stops the named container and removes it.
func (e *Engine) Stop(ctx context.Context, nameOrID string) error {
	timeout := 30
	if err := e.client.ContainerStop(ctx, nameOrID, container.StopOptions{
		Timeout: &timeout,
	}); err != nil {
		return errors.Wrapf(err, "failed to stop container: %s", nameOrID)
	}

	if err := e.client.ContainerRemove(ctx, nameOrID, container.RemoveOptions{
		Force: true,
	}); err != nil {
		return errors.Wrapf(err, "failed to remove container: %s", nameOrID)
	}

	return nil
}

// Get inspects a single container by name or ID.
func (e *Engine) Get(ctx context.Context, nameOrID string) (*Container, error) {
	inspect, err := e.client.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to inspect container: %s", nameOrID)
	}

	var names []string
	if inspect.Name != "" {
		names = []string{strings.TrimPrefix(inspect.Name, "/")}
	}

	return &Container{
		Names:  names,
		Image:  inspect.Config.Image,
		State:  inspect.State.Status,
		Status: inspect.State.Status,
	}, nil
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for key, value := range env {
		out = append(out, fmt.Sprintf("%s=%s", key, value))
	}
	return out
}

func exposedPorts(ports map[int]int) nat.PortSet {
	set := make(nat.PortSet, len(ports))
	for _, containerPort := range ports {
		set[nat.Port(fmt.Sprintf("%d/tcp", containerPort))] = struct{}{}
	}
	return set
}

func portBindings(ports map[int]int) nat.PortMap {
	bindings := make(nat.PortMap, len(ports))
	for hostPort, containerPort := range ports {
		host := ""
		if hostPort > 0 {
			host = strconv.Itoa(hostPort)
		}
		port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
		bindings[port] = []nat.PortBinding{{HostPort: host}}
	}
	return bindings
}

func volumeBinds(volumes []ContainerVolume) []string {
	binds := make([]string, len(volumes))
	for i, volume := range volumes {
		bind := fmt.Sprintf("%s:%s", volume.HostPath, volume.ContainerPath)
		if volume.ReadOnly {
			bind += ":ro"
		}
		binds[i] = bind
	}
	return binds
}
