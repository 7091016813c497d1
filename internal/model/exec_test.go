package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/execgate/internal/model"
)

func TestCommandRequestText(t *testing.T) {
	tests := map[string]struct {
		body   string
		expCmd string
		expOK  bool
	}{
		"A text command should be returned trimmed": {
			body:   `{"command": "  uname -a  "}`,
			expCmd: "uname -a",
			expOK:  true,
		},

		"A missing command should not be valid": {
			body:  `{}`,
			expOK: false,
		},

		"A null command should not be valid": {
			body:  `{"command": null}`,
			expOK: false,
		},

		"A numeric command should not be valid": {
			body:  `{"command": 42}`,
			expOK: false,
		},

		"An object command should not be valid": {
			body:  `{"command": {"cmd": "ls"}}`,
			expOK: false,
		},

		"An empty command should not be valid": {
			body:  `{"command": ""}`,
			expOK: false,
		},

		"A whitespace only command should not be valid": {
			body:  `{"command": " \t\n "}`,
			expOK: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			var req model.CommandRequest
			err := json.Unmarshal([]byte(test.body), &req)
			assert.NoError(err)

			gotCmd, gotOK := req.Text()
			assert.Equal(test.expOK, gotOK)
			assert.Equal(test.expCmd, gotCmd)
		})
	}
}

func TestNewCommandRequest(t *testing.T) {
	cmd, ok := model.NewCommandRequest(`echo "hi"`).Text()
	assert.True(t, ok)
	assert.Equal(t, `echo "hi"`, cmd)
}

func TestEpochSeconds(t *testing.T) {
	ts := time.Unix(1700000000, int64(500*time.Millisecond))
	assert.InDelta(t, 1700000000.5, model.EpochSeconds(ts), 0.0001)
}

func TestFromEpochSeconds(t *testing.T) {
	ts := time.Date(2025, 5, 11, 8, 0, 0, int(250*time.Millisecond), time.UTC)
	assert.Equal(t, ts, model.FromEpochSeconds(model.EpochSeconds(ts)))
}
