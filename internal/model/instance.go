package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// InstanceID identifies an instance inside a pool, in the [0, N) range.
type InstanceID int

// InstanceRecord is the liveness record of a single pool instance.
type InstanceRecord struct {
	Pool string
	ID   InstanceID
	// LastRequestAt is the last time a request was sent to the instance, nil if never contacted.
	LastRequestAt *time.Time
}

// Pool is a fixed size set of backend instances of the same kind.
type Pool struct {
	Name string
	// Prefix is the path prefix routed to this pool (e.g. "/api").
	Prefix string
	// StripPrefix removes the prefix before forwarding the request.
	StripPrefix bool
	// Instances are the base URLs of the instances, the index is the InstanceID.
	Instances []string
	// Replicas is the number of instances to launch when the pool is backed by
	// managed containers, in that case Instances are set once they are running.
	Replicas int
}

// Size returns the number of instances of the pool.
func (p Pool) Size() int { return len(p.Instances) }

// Validate validates the pool.
func (p Pool) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pool name is required: %w", ErrNotValid)
	}
	if !strings.HasPrefix(p.Prefix, "/") || p.Prefix == "/" {
		return fmt.Errorf("pool %s prefix %q must start with / and not be the root: %w", p.Name, p.Prefix, ErrNotValid)
	}
	if len(p.Instances) == 0 {
		return fmt.Errorf("pool %s must have at least one instance: %w", p.Name, ErrNotValid)
	}
	for i, inst := range p.Instances {
		u, err := url.Parse(inst)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("pool %s instance %d has an invalid URL %q: %w", p.Name, i, inst, ErrNotValid)
		}
	}

	return nil
}
