package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/storage/redis"
)

// fakeClient stores values in a map and answers with go-redis result commands.
type fakeClient struct {
	data   map[string]string
	getErr error
	setErr error
}

func (f *fakeClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.data[key] = fmt.Sprint(value)
	return goredis.NewStatusResult("OK", nil)
}

func TestRepositoryGetValue(t *testing.T) {
	tests := map[string]struct {
		data     map[string]string
		getErr   error
		key      string
		expValue *string
		expErr   bool
	}{
		"A missing key should return nil without error.": {
			data: map[string]string{},
			key:  "demo-key",
		},

		"An existing key should return its value.": {
			data:     map[string]string{"execgate:demo-key": "hello"},
			key:      "demo-key",
			expValue: ptr("hello"),
		},

		"A key without the prefix should not be visible.": {
			data: map[string]string{"demo-key": "hello"},
			key:  "demo-key",
		},

		"A client error should be returned.": {
			data:   map[string]string{},
			getErr: fmt.Errorf("connection refused"),
			key:    "demo-key",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo, err := redis.NewRepository(redis.RepositoryConfig{
				Client:    &fakeClient{data: test.data, getErr: test.getErr},
				KeyPrefix: "execgate:",
			})
			require.NoError(err)

			v, err := repo.GetValue(context.Background(), test.key)
			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expValue, v)
		})
	}
}

func TestRepositorySetValue(t *testing.T) {
	client := &fakeClient{data: map[string]string{}}
	repo, err := redis.NewRepository(redis.RepositoryConfig{Client: client})
	require.NoError(t, err)

	require.NoError(t, repo.SetValue(context.Background(), "demo-key", "v1"))
	assert.Equal(t, "v1", client.data["demo-key"])

	client.setErr = fmt.Errorf("readonly")
	assert.Error(t, repo.SetValue(context.Background(), "demo-key", "v2"))
}

func TestNewRepositoryRequiresClient(t *testing.T) {
	_, err := redis.NewRepository(redis.RepositoryConfig{})
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
