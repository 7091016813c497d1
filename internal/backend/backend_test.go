package backend_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/backend"
)

func TestServerHandler(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "APP_ENV" {
			return "production", true
		}
		return "", false
	}

	tests := map[string]struct {
		cfg       backend.ServerConfig
		path      string
		headers   map[string]string
		expStatus int
		expBody   string
	}{
		"API1 should return the configured message and value.": {
			path:      "/api/api1",
			expStatus: http.StatusOK,
			expBody:   `{"message":"From Container!!!","value":101}`,
		},

		"API1 should return a custom message.": {
			cfg:       backend.ServerConfig{Message: "instance 1", Value: 7},
			path:      "/api/api1",
			expStatus: http.StatusOK,
			expBody:   `{"message":"instance 1","value":7}`,
		},

		"Heavy compute should calculate the configured fibonacci number.": {
			cfg:       backend.ServerConfig{FibN: 20},
			path:      "/api/heavycompute",
			expStatus: http.StatusOK,
			expBody:   `{"message":"Heavy compute done from Container!","fib":6765,"n":20}`,
		},

		"Heavy compute should accept the n query parameter.": {
			path:      "/api/heavycompute?n=10",
			expStatus: http.StatusOK,
			expBody:   `{"message":"Heavy compute done from Container!","fib":55,"n":10}`,
		},

		"Heavy compute should reject out of range n.": {
			path:      "/api/heavycompute?n=90",
			expStatus: http.StatusBadRequest,
		},

		"Response headers should return the request headers and the selected env vars.": {
			cfg:       backend.ServerConfig{EnvKeys: []string{"APP_ENV", "MESSAGE"}, LookupEnv: lookup},
			path:      "/api/responseheaders",
			headers:   map[string]string{"X-Test": "yes"},
			expStatus: http.StatusOK,
			expBody:   `{"headers":{"X-Test":"yes"},"environment_variables":{"APP_ENV":"production","MESSAGE":""}}`,
		},

		"Unknown paths should not be found.": {
			path:      "/api/unknown",
			expStatus: http.StatusNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			srv, err := backend.NewServer(test.cfg)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, test.path, nil)
			for k, v := range test.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, test.expStatus, rec.Code)
			if test.expBody != "" {
				assert.JSONEq(t, test.expBody, rec.Body.String())
				assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestNewServerInvalidFibN(t *testing.T) {
	_, err := backend.NewServer(backend.ServerConfig{FibN: backend.MaxFibN + 1})
	assert.Error(t, err)
}

func TestResponseHeadersDefaultEnvKeys(t *testing.T) {
	srv, err := backend.NewServer(backend.ServerConfig{LookupEnv: func(string) (string, bool) { return "", false }})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/responseheaders", nil))

	var body struct {
		EnvironmentVariables map[string]string `json:"environment_variables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.EnvironmentVariables, len(backend.DefaultEnvKeys))
}
