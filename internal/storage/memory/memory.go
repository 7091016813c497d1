package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

type instanceKey struct {
	pool string
	id   model.InstanceID
}

// Repository is an in-memory implementation of storage.InstanceRepository and storage.KVRepository.
// The state is lost when the process exits.
type Repository struct {
	instances map[instanceKey]time.Time
	kv        map[string]string
	mu        sync.RWMutex
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		instances: make(map[instanceKey]time.Time),
		kv:        make(map[string]string),
		logger:    cfg.Logger,
	}, nil
}

// RecordContact stores the latest contact time of an instance and returns the previous one.
func (r *Repository) RecordContact(ctx context.Context, pool string, id model.InstanceID, at time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey{pool: pool, id: id}
	prev, ok := r.instances[key]
	if !ok {
		r.instances[key] = at
		r.logger.Debugf("First contact with instance %s/%d", pool, id)
		return nil, nil
	}

	// Never go back in time.
	if at.After(prev) {
		r.instances[key] = at
	}

	return &prev, nil
}

// GetInstance returns the instance record.
func (r *Repository) GetInstance(ctx context.Context, pool string, id model.InstanceID) (*model.InstanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	at, ok := r.instances[instanceKey{pool: pool, id: id}]
	if !ok {
		return nil, fmt.Errorf("instance %s/%d: %w", pool, id, model.ErrNotFound)
	}

	return &model.InstanceRecord{Pool: pool, ID: id, LastRequestAt: &at}, nil
}

// ListInstances returns all the instance records sorted by pool and id.
func (r *Repository) ListInstances(ctx context.Context) ([]model.InstanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]model.InstanceRecord, 0, len(r.instances))
	for k, at := range r.instances {
		at := at
		records = append(records, model.InstanceRecord{Pool: k.pool, ID: k.id, LastRequestAt: &at})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Pool != records[j].Pool {
			return records[i].Pool < records[j].Pool
		}
		return records[i].ID < records[j].ID
	})

	return records, nil
}

// GetValue returns the value of a key, nil if missing.
func (r *Repository) GetValue(ctx context.Context, key string) (*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.kv[key]
	if !ok {
		return nil, nil
	}

	return &v, nil
}

// SetValue sets the value of a key.
func (r *Repository) SetValue(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kv[key] = value
	return nil
}
