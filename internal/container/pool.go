package container

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/utils/env"
)

// DefaultEnv returns the environment every instance container gets.
func DefaultEnv(startedAt time.Time) map[string]string {
	return map[string]string{
		"APP_ENV": "production",
		"MESSAGE": "Start Time: " + startedAt.UTC().Format(time.RFC3339Nano),
	}
}

// PoolConfig is the configuration for a container pool.
type PoolConfig struct {
	Pool  model.Pool
	Image string
	// ContainerPort is the port the instance application listens on.
	ContainerPort int
	// BaseHostPort is the host port of the first instance, the rest use the following ports.
	BaseHostPort int
	// Env is merged over DefaultEnv.
	Env     map[string]string
	Runtime Runtime
	Hooks   Hooks
	Logger  log.Logger
	TimeNow func() time.Time
}

func (c *PoolConfig) defaults() error {
	if c.Pool.Name == "" {
		return fmt.Errorf("pool name is required")
	}
	if c.Pool.Replicas <= 0 {
		return fmt.Errorf("pool %s replicas must be positive", c.Pool.Name)
	}
	if c.Image == "" {
		return fmt.Errorf("image is required")
	}
	if c.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if c.ContainerPort == 0 {
		c.ContainerPort = 8080
	}
	if c.BaseHostPort == 0 {
		c.BaseHostPort = 9001
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "container.Pool", "pool": c.Pool.Name})
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Pool is a fixed set of instance containers of a router pool.
type Pool struct {
	pool       model.Pool
	lifecycles []*Lifecycle
	logger     log.Logger
}

// NewPool creates the lifecycles of every pool instance, none of them is started.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Built once, shared by all the instances.
	instanceEnv := env.MergeMaps(DefaultEnv(cfg.TimeNow()), cfg.Env)

	p := &Pool{pool: cfg.Pool, logger: cfg.Logger}
	for i := range cfg.Pool.Replicas {
		id := strings.ToLower(ulid.MustNew(ulid.Timestamp(cfg.TimeNow()), rand.Reader).String())
		l, err := NewLifecycle(LifecycleConfig{
			Spec: model.ContainerSpec{
				Name:     fmt.Sprintf("execgate-%s-%d-%s", cfg.Pool.Name, i, id),
				Image:    cfg.Image,
				Port:     cfg.ContainerPort,
				HostPort: cfg.BaseHostPort + i,
				Env:      instanceEnv,
			},
			Runtime: cfg.Runtime,
			Hooks:   cfg.Hooks,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		p.lifecycles = append(p.lifecycles, l)
	}

	return p, nil
}

// Lifecycles returns the instance lifecycles, the index is the instance id.
func (p *Pool) Lifecycles() []*Lifecycle { return p.lifecycles }

// Start starts every instance and returns the pool with the instance URLs set.
// If any instance fails, the already started ones are stopped.
func (p *Pool) Start(ctx context.Context) (model.Pool, error) {
	instances := make([]string, 0, len(p.lifecycles))
	for i, l := range p.lifecycles {
		if err := l.Start(ctx); err != nil {
			if stopErr := p.Stop(context.WithoutCancel(ctx)); stopErr != nil {
				p.logger.Errorf("could not stop pool after start failure: %s", stopErr)
			}
			return model.Pool{}, fmt.Errorf("could not start instance %d: %w", i, err)
		}
		instances = append(instances, fmt.Sprintf("http://127.0.0.1:%d", l.Spec().HostPort))
	}

	pool := p.pool
	pool.Instances = instances
	return pool, nil
}

// Stop stops every running or faulted instance.
func (p *Pool) Stop(ctx context.Context) error {
	var errs []error
	for _, l := range p.lifecycles {
		switch l.State() {
		case model.ContainerStateRunning, model.ContainerStateFaulted:
			if err := l.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
