package docker_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/container/docker"
	"github.com/slok/execgate/internal/model"
)

type mockDockerClient struct {
	mock.Mock
}

func (m *mockDockerClient) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, refStr, options)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockDockerClient) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	args := m.Called(ctx, config, hostConfig, networkingConfig, platform, containerName)
	return args.Get(0).(container.CreateResponse), args.Error(1)
}

func (m *mockDockerClient) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

func (m *mockDockerClient) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

func (m *mockDockerClient) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	return m.Called(ctx, containerID, options).Error(0)
}

var testSpec = model.ContainerSpec{
	Name:     "execgate-backend-0-x",
	Image:    "execgate/backend:latest",
	Port:     8080,
	HostPort: 9001,
	Env:      map[string]string{"APP_ENV": "production", "MESSAGE": "hi"},
}

func TestRuntimeStart(t *testing.T) {
	tests := map[string]struct {
		mock   func(m *mockDockerClient)
		expErr bool
	}{
		"Starting a container should pull, create with the port binding and start it.": {
			mock: func(m *mockDockerClient) {
				m.On("ImagePull", mock.Anything, "execgate/backend:latest", mock.Anything).Once().Return(io.NopCloser(strings.NewReader("{}")), nil)

				expPort := nat.Port("8080/tcp")
				m.On("ContainerCreate", mock.Anything,
					mock.MatchedBy(func(c *container.Config) bool {
						_, exposed := c.ExposedPorts[expPort]
						return c.Image == "execgate/backend:latest" &&
							exposed &&
							assert.ObjectsAreEqual([]string{"APP_ENV=production", "MESSAGE=hi"}, c.Env)
					}),
					mock.MatchedBy(func(h *container.HostConfig) bool {
						b := h.PortBindings[expPort]
						return len(b) == 1 && b[0].HostIP == "127.0.0.1" && b[0].HostPort == "9001"
					}),
					(*network.NetworkingConfig)(nil), (*ocispec.Platform)(nil), "execgate-backend-0-x",
				).Once().Return(container.CreateResponse{ID: "c1"}, nil)

				m.On("ContainerStart", mock.Anything, "c1", mock.Anything).Once().Return(nil)
			},
		},

		"A pull failure should fail.": {
			mock: func(m *mockDockerClient) {
				m.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil, fmt.Errorf("no registry"))
			},
			expErr: true,
		},

		"A start failure should remove the created container.": {
			mock: func(m *mockDockerClient) {
				m.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(io.NopCloser(strings.NewReader("")), nil)
				m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "c1"}, nil)
				m.On("ContainerStart", mock.Anything, "c1", mock.Anything).Once().Return(fmt.Errorf("port is already allocated"))
				m.On("ContainerRemove", mock.Anything, "c1", container.RemoveOptions{Force: true}).Once().Return(nil)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &mockDockerClient{}
			test.mock(m)

			rt, err := docker.NewRuntime(docker.RuntimeConfig{Client: m})
			require.NoError(t, err)

			err = rt.Start(context.Background(), testSpec)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRuntimeStartSkipPull(t *testing.T) {
	m := &mockDockerClient{}
	m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "c1"}, nil)
	m.On("ContainerStart", mock.Anything, "c1", mock.Anything).Once().Return(nil)

	rt, err := docker.NewRuntime(docker.RuntimeConfig{Client: m, SkipPull: true})
	require.NoError(t, err)

	require.NoError(t, rt.Start(context.Background(), testSpec))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "ImagePull", mock.Anything, mock.Anything, mock.Anything)
}

func TestRuntimeStop(t *testing.T) {
	tests := map[string]struct {
		mock   func(m *mockDockerClient)
		expErr bool
	}{
		"Stopping a container should stop and remove it.": {
			mock: func(m *mockDockerClient) {
				m.On("ContainerStop", mock.Anything, "execgate-backend-0-x", mock.MatchedBy(func(o container.StopOptions) bool {
					return o.Timeout != nil && *o.Timeout == 10
				})).Once().Return(nil)
				m.On("ContainerRemove", mock.Anything, "execgate-backend-0-x", container.RemoveOptions{Force: true}).Once().Return(nil)
			},
		},

		"A missing container should not fail.": {
			mock: func(m *mockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.Anything).Once().Return(fmt.Errorf("Error response from daemon: No such container: execgate-backend-0-x"))
			},
		},

		"An already stopped container should be removed.": {
			mock: func(m *mockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.Anything).Once().Return(fmt.Errorf("container is not running"))
				m.On("ContainerRemove", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
			},
		},

		"A stop failure should fail.": {
			mock: func(m *mockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.Anything).Once().Return(fmt.Errorf("daemon down"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &mockDockerClient{}
			test.mock(m)

			rt, err := docker.NewRuntime(docker.RuntimeConfig{Client: m})
			require.NoError(t, err)

			err = rt.Stop(context.Background(), testSpec)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}
