package proxy_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/proxy"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestForwarderForward(t *testing.T) {
	tests := map[string]struct {
		upstream    http.HandlerFunc
		reqPath     string
		reqHeaders  map[string]string
		stripPrefix string
		expStatus   int
		expBody     string
		expHeaders  map[string]string
	}{
		"Upstream response should be copied unmodified": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Instance", "0")
				w.WriteHeader(http.StatusTeapot)
				_, _ = fmt.Fprint(w, "short and stout")
			},
			reqPath:    "/api/api1",
			expStatus:  http.StatusTeapot,
			expBody:    "short and stout",
			expHeaders: map[string]string{"X-Instance": "0"},
		},

		"Path and query should be kept": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprintf(w, "%s?%s", r.URL.Path, r.URL.RawQuery)
			},
			reqPath:   "/api/heavycompute?n=10",
			expStatus: http.StatusOK,
			expBody:   "/api/heavycompute?n=10",
		},

		"Prefix should be stripped when requested": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, r.URL.Path)
			},
			reqPath:     "/linux/run",
			stripPrefix: "/linux",
			expStatus:   http.StatusOK,
			expBody:     "/run",
		},

		"Stripping the whole path should forward to the root": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, r.URL.Path)
			},
			reqPath:     "/linux",
			stripPrefix: "/linux",
			expStatus:   http.StatusOK,
			expBody:     "/",
		},

		"Hop-by-hop headers should not be forwarded": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprintf(w, "%q %q %q", r.Header.Get("Proxy-Authorization"), r.Header.Get("X-Custom"), r.Header.Get("X-Secret-Hop"))
			},
			reqPath: "/api",
			reqHeaders: map[string]string{
				"Proxy-Authorization": "Basic abc",
				"Connection":          "X-Secret-Hop",
				"X-Secret-Hop":        "1",
				"X-Custom":            "yes",
			},
			expStatus: http.StatusOK,
			expBody:   `"" "yes" ""`,
		},

		"Forwarded for should be appended": {
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, r.Header.Get("X-Forwarded-For"))
			},
			reqPath:    "/api",
			reqHeaders: map[string]string{"X-Forwarded-For": "10.0.0.1"},
			expStatus:  http.StatusOK,
			expBody:    "10.0.0.1, 192.0.2.1",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			upstream := httptest.NewServer(test.upstream)
			defer upstream.Close()

			f, err := proxy.NewForwarder(proxy.ForwarderConfig{Logger: log.Noop})
			require.NoError(err)

			req := httptest.NewRequest(http.MethodGet, test.reqPath, nil)
			for k, v := range test.reqHeaders {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			status, err := f.Forward(rec, req, mustURL(t, upstream.URL), test.stripPrefix)
			require.NoError(err)

			assert.Equal(test.expStatus, status)
			assert.Equal(test.expStatus, rec.Code)
			assert.Equal(test.expBody, rec.Body.String())
			for k, v := range test.expHeaders {
				assert.Equal(v, rec.Header().Get(k))
			}
		})
	}
}

func TestForwarderForwardBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_, _ = fmt.Fprintf(w, "%s %s", r.Method, b)
	}))
	defer upstream.Close()

	f, err := proxy.NewForwarder(proxy.ForwarderConfig{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{"a":1}`))
	rec := httptest.NewRecorder()
	_, err = f.Forward(rec, req, mustURL(t, upstream.URL), "")
	require.NoError(t, err)
	assert.Equal(t, `POST {"a":1}`, rec.Body.String())
}

func TestForwarderUnavailable(t *testing.T) {
	// A listener that is closed right away gives us an address nobody listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	f, err := proxy.NewForwarder(proxy.ForwarderConfig{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/api1", nil)
	rec := httptest.NewRecorder()
	_, err = f.Forward(rec, req, mustURL(t, "http://"+addr), "")

	assert.True(t, errors.Is(err, model.ErrUnavailable))
	// Nothing should be written so the caller can answer.
	assert.Empty(t, rec.Body.String())
	assert.False(t, rec.Flushed)
	assert.Empty(t, rec.Header())
}

func TestForwarderCustomTransport(t *testing.T) {
	var gotURL string
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return nil, context.DeadlineExceeded
	})

	f, err := proxy.NewForwarder(proxy.ForwarderConfig{Transport: transport})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/api1?x=1", nil)
	_, err = f.Forward(httptest.NewRecorder(), req, mustURL(t, "http://10.0.0.1:8080/base"), "")
	assert.True(t, errors.Is(err, model.ErrUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "http://10.0.0.1:8080/base/api/api1?x=1", gotURL)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
