// Package docker is a container runtime backed by the Docker engine API.
package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/utils/env"
)

// DockerClient is the interface for Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// RuntimeConfig is the configuration for the Docker runtime.
type RuntimeConfig struct {
	Client DockerClient
	// SkipPull uses the local image without pulling it.
	SkipPull bool
	// HostIP is the host address the container ports are published on.
	HostIP string
	// StopTimeoutSeconds is the graceful stop timeout before the container is killed.
	StopTimeoutSeconds int
	Logger             log.Logger
}

func (c *RuntimeConfig) defaults() error {
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.HostIP == "" {
		c.HostIP = "127.0.0.1"
	}
	if c.StopTimeoutSeconds == 0 {
		c.StopTimeoutSeconds = 10
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "docker.Runtime"})
	return nil
}

// Runtime runs instance containers on Docker.
type Runtime struct {
	client      DockerClient
	skipPull    bool
	hostIP      string
	stopTimeout int
	logger      log.Logger
}

// NewRuntime creates a new Docker runtime.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runtime{
		client:      cfg.Client,
		skipPull:    cfg.SkipPull,
		hostIP:      cfg.HostIP,
		stopTimeout: cfg.StopTimeoutSeconds,
		logger:      cfg.Logger,
	}, nil
}

// Start pulls the image, creates the container publishing its port and starts it.
func (r *Runtime) Start(ctx context.Context, spec model.ContainerSpec) error {
	if !r.skipPull {
		r.logger.Infof("[1/3] Pulling image: %s", spec.Image)
		pullResp, err := r.client.ImagePull(ctx, spec.Image, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", spec.Image, err)
		}
		// Consume the pull response to ensure it completes
		_, _ = io.Copy(io.Discard, pullResp)
		pullResp.Close()
	}

	r.logger.Infof("[2/3] Creating container: %s", spec.Name)
	port, err := nat.NewPort("tcp", strconv.Itoa(spec.Port))
	if err != nil {
		return fmt.Errorf("invalid container port %d: %w", spec.Port, err)
	}

	containerConfig := &container.Config{
		Image:        spec.Image,
		Env:          env.List(spec.Env),
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{"io.execgate.managed": "true"},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: r.hostIP, HostPort: strconv.Itoa(spec.HostPort)}},
		},
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	r.logger.Infof("[3/3] Starting container: %s", resp.ID)
	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if rmErr := r.remove(context.WithoutCancel(ctx), resp.ID); rmErr != nil {
			r.logger.Warningf("could not remove container %s after start failure: %s", spec.Name, rmErr)
		}
		return fmt.Errorf("failed to start container: %w", err)
	}

	return nil
}

// Stop stops and removes the container, missing or stopped containers are not an error.
func (r *Runtime) Stop(ctx context.Context, spec model.ContainerSpec) error {
	r.logger.Infof("[1/2] Stopping container: %s", spec.Name)
	timeout := r.stopTimeout
	if err := r.client.ContainerStop(ctx, spec.Name, container.StopOptions{Timeout: &timeout}); err != nil {
		switch {
		case isNotFound(err):
			r.logger.Debugf("Container %s doesn't exist", spec.Name)
			return nil
		case strings.Contains(err.Error(), "is already stopped"), strings.Contains(err.Error(), "is not running"):
			r.logger.Debugf("Container %s is already stopped", spec.Name)
		default:
			return fmt.Errorf("failed to stop container %s: %w", spec.Name, err)
		}
	}

	r.logger.Infof("[2/2] Removing container: %s", spec.Name)
	return r.remove(ctx, spec.Name)
}

func (r *Runtime) remove(ctx context.Context, id string) error {
	if err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return client.IsErrNotFound(err) || strings.Contains(err.Error(), "No such container")
}
