package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/storage/memory"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func TestRepositoryInstances(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  bool
	}{
		"First contact should return no previous timestamp": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				prev, err := repo.RecordContact(ctx, "backend", 0, t0)
				require.NoError(t, err)
				assert.Nil(t, prev)

				rec, err := repo.GetInstance(ctx, "backend", 0)
				require.NoError(t, err)
				assert.Equal(t, t0, *rec.LastRequestAt)
				return nil
			},
		},

		"Consecutive contacts should return the previous timestamp": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.RecordContact(ctx, "backend", 1, t0)
				require.NoError(t, err)

				prev, err := repo.RecordContact(ctx, "backend", 1, t0.Add(time.Second))
				require.NoError(t, err)
				require.NotNil(t, prev)
				assert.Equal(t, t0, *prev)

				rec, err := repo.GetInstance(ctx, "backend", 1)
				require.NoError(t, err)
				assert.Equal(t, t0.Add(time.Second), *rec.LastRequestAt)
				return nil
			},
		},

		"Older contacts should never decrease the timestamp": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.RecordContact(ctx, "backend", 0, t0)
				require.NoError(t, err)
				_, err = repo.RecordContact(ctx, "backend", 0, t0.Add(-time.Hour))
				require.NoError(t, err)

				rec, err := repo.GetInstance(ctx, "backend", 0)
				require.NoError(t, err)
				assert.Equal(t, t0, *rec.LastRequestAt)
				return nil
			},
		},

		"Pools should be independent": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.RecordContact(ctx, "backend", 0, t0)
				require.NoError(t, err)

				prev, err := repo.RecordContact(ctx, "linux", 0, t0.Add(time.Minute))
				require.NoError(t, err)
				assert.Nil(t, prev)

				records, err := repo.ListInstances(ctx)
				require.NoError(t, err)
				require.Len(t, records, 2)
				assert.Equal(t, "backend", records[0].Pool)
				assert.Equal(t, "linux", records[1].Pool)
				return nil
			},
		},

		"Getting a never contacted instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetInstance(ctx, "backend", 3)
				assert.True(t, errors.Is(err, model.ErrNotFound))
				return err
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepositoryMonotonicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.RecordContact(ctx, "backend", 0, t0.Add(time.Duration(i)*time.Second))
		}()
	}
	wg.Wait()

	rec, err := repo.GetInstance(ctx, "backend", 0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(49*time.Second), *rec.LastRequestAt)
}

func TestRepositoryKV(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	v, err := repo.GetValue(ctx, "demo-key")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, repo.SetValue(ctx, "demo-key", "demo-value"))

	v, err = repo.GetValue(ctx, "demo-key")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "demo-value", *v)
}
