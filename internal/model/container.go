package model

// ContainerState is the lifecycle state of a managed container.
type ContainerState string

const (
	ContainerStateUninitialized ContainerState = "uninitialized"
	ContainerStateRunning       ContainerState = "running"
	ContainerStateStopped       ContainerState = "stopped"
	ContainerStateFaulted       ContainerState = "faulted"
)

// ContainerSpec describes a backend instance container.
type ContainerSpec struct {
	Name  string
	Image string
	// Port is the port the application listens on inside the container.
	Port int
	// HostPort is the host port the container port is published on.
	HostPort int
	// Env is built once at startup and must not be mutated afterwards.
	Env map[string]string
}
