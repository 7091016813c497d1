package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/execgate/internal/model"
)

func TestPoolValidate(t *testing.T) {
	tests := map[string]struct {
		pool   model.Pool
		expErr bool
	}{
		"A valid pool should not fail": {
			pool: model.Pool{
				Name:      "backend",
				Prefix:    "/api",
				Instances: []string{"http://127.0.0.1:8080", "http://127.0.0.1:8081"},
			},
		},

		"Missing name should fail": {
			pool: model.Pool{
				Prefix:    "/api",
				Instances: []string{"http://127.0.0.1:8080"},
			},
			expErr: true,
		},

		"A prefix without slash should fail": {
			pool: model.Pool{
				Name:      "backend",
				Prefix:    "api",
				Instances: []string{"http://127.0.0.1:8080"},
			},
			expErr: true,
		},

		"The root prefix should fail": {
			pool: model.Pool{
				Name:      "backend",
				Prefix:    "/",
				Instances: []string{"http://127.0.0.1:8080"},
			},
			expErr: true,
		},

		"A pool without instances should fail": {
			pool: model.Pool{
				Name:   "backend",
				Prefix: "/api",
			},
			expErr: true,
		},

		"An instance without scheme should fail": {
			pool: model.Pool{
				Name:      "backend",
				Prefix:    "/api",
				Instances: []string{"127.0.0.1:8080"},
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := test.pool.Validate()
			if test.expErr {
				assert.Error(err)
				assert.True(errors.Is(err, model.ErrNotValid))
			} else {
				assert.NoError(err)
			}
		})
	}
}
