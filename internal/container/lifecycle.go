// Package container manages the lifecycle of the containers backing pool instances.
package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// Runtime runs containers.
type Runtime interface {
	Start(ctx context.Context, spec model.ContainerSpec) error
	Stop(ctx context.Context, spec model.ContainerSpec) error
}

// Hooks are called on lifecycle transitions. Any of them can be nil.
type Hooks struct {
	OnStart func(ctx context.Context, spec model.ContainerSpec)
	OnStop  func(ctx context.Context, spec model.ContainerSpec)
	OnError func(ctx context.Context, spec model.ContainerSpec, err error)
}

// LifecycleConfig is the configuration for a container lifecycle.
type LifecycleConfig struct {
	Spec    model.ContainerSpec
	Runtime Runtime
	Hooks   Hooks
	Logger  log.Logger
}

func (c *LifecycleConfig) defaults() error {
	if c.Spec.Name == "" {
		return fmt.Errorf("container name is required")
	}
	if c.Spec.Image == "" {
		return fmt.Errorf("container image is required")
	}
	if c.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "container.Lifecycle", "container": c.Spec.Name})
	return nil
}

// Lifecycle is the state machine of a single container:
//
//	uninitialized|stopped -> running (Start)
//	running|faulted       -> stopped (Stop)
//	any runtime failure   -> faulted
type Lifecycle struct {
	spec    model.ContainerSpec
	runtime Runtime
	hooks   Hooks
	logger  log.Logger

	opMu    sync.Mutex // Serializes transitions.
	stateMu sync.RWMutex
	state   model.ContainerState
}

// NewLifecycle returns a lifecycle in the uninitialized state.
func NewLifecycle(cfg LifecycleConfig) (*Lifecycle, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Lifecycle{
		spec:    cfg.Spec,
		runtime: cfg.Runtime,
		hooks:   cfg.Hooks,
		logger:  cfg.Logger,
		state:   model.ContainerStateUninitialized,
	}, nil
}

// Spec returns the container spec.
func (l *Lifecycle) Spec() model.ContainerSpec { return l.spec }

// State returns the current state.
func (l *Lifecycle) State() model.ContainerState {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.state
}

func (l *Lifecycle) setState(s model.ContainerState) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.logger.Debugf("container state %s -> %s", l.state, s)
	l.state = s
}

// Start starts the container.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	current := l.State()
	if current != model.ContainerStateUninitialized && current != model.ContainerStateStopped {
		return fmt.Errorf("can't start container in %s state: %w", current, model.ErrNotValid)
	}

	if err := l.runtime.Start(ctx, l.spec); err != nil {
		l.fault(ctx, err)
		return fmt.Errorf("could not start container %s: %w", l.spec.Name, err)
	}

	l.setState(model.ContainerStateRunning)
	l.logger.Infof("container started")
	if l.hooks.OnStart != nil {
		l.hooks.OnStart(ctx, l.spec)
	}

	return nil
}

// Stop stops the container.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	current := l.State()
	if current != model.ContainerStateRunning && current != model.ContainerStateFaulted {
		return fmt.Errorf("can't stop container in %s state: %w", current, model.ErrNotValid)
	}

	if err := l.runtime.Stop(ctx, l.spec); err != nil {
		l.fault(ctx, err)
		return fmt.Errorf("could not stop container %s: %w", l.spec.Name, err)
	}

	l.setState(model.ContainerStateStopped)
	l.logger.Infof("container stopped")
	if l.hooks.OnStop != nil {
		l.hooks.OnStop(ctx, l.spec)
	}

	return nil
}

func (l *Lifecycle) fault(ctx context.Context, err error) {
	l.setState(model.ContainerStateFaulted)
	l.logger.Errorf("container error: %s", err)
	if l.hooks.OnError != nil {
		l.hooks.OnError(ctx, l.spec, err)
	}
}
