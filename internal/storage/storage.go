package storage

import (
	"context"
	"time"

	"github.com/slok/execgate/internal/model"
)

// InstanceRepository is the interface for the pool instances liveness state.
type InstanceRepository interface {
	// RecordContact sets the last request time of the instance to at, unless a
	// later time is already stored. It returns the time stored before the call,
	// nil if the instance was never contacted.
	RecordContact(ctx context.Context, pool string, id model.InstanceID, at time.Time) (previous *time.Time, err error)
	GetInstance(ctx context.Context, pool string, id model.InstanceID) (*model.InstanceRecord, error)
	ListInstances(ctx context.Context) ([]model.InstanceRecord, error)
}

// KVRepository is the interface for the key-value platform store.
type KVRepository interface {
	// GetValue returns nil if the key doesn't exist.
	GetValue(ctx context.Context, key string) (*string, error)
	SetValue(ctx context.Context, key, value string) error
}

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name InstanceRepository
