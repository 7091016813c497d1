// Package proxy forwards HTTP requests to upstream instances.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// ForwarderConfig is the configuration for the forwarder.
type ForwarderConfig struct {
	// Transport is used to send the upstream requests, by default an
	// http.Transport with ResponseHeaderTimeout.
	Transport             http.RoundTripper
	ResponseHeaderTimeout time.Duration
	DialContext           func(ctx context.Context, network, addr string) (net.Conn, error)
	Logger                log.Logger
}

func (c *ForwarderConfig) defaults() error {
	if c.ResponseHeaderTimeout <= 0 {
		c.ResponseHeaderTimeout = 30 * time.Second
	}
	if c.DialContext == nil {
		c.DialContext = (&net.Dialer{Timeout: 10 * time.Second}).DialContext
	}
	if c.Transport == nil {
		c.Transport = &http.Transport{
			DialContext:           c.DialContext,
			ResponseHeaderTimeout: c.ResponseHeaderTimeout,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "proxy.Forwarder"})
	return nil
}

// Forwarder sends inbound requests to an upstream and copies the response back.
// It doesn't retry.
type Forwarder struct {
	transport http.RoundTripper
	logger    log.Logger
}

// NewForwarder creates a new forwarder.
func NewForwarder(cfg ForwarderConfig) (*Forwarder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Forwarder{
		transport: cfg.Transport,
		logger:    cfg.Logger,
	}, nil
}

// Forward sends r to target, removing stripPrefix from the request path if not empty.
// When the upstream can't be reached nothing is written to w and the returned
// error wraps model.ErrUnavailable, so the caller can answer in its own way.
// Otherwise the upstream response is copied unmodified and its status is returned.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, target *url.URL, stripPrefix string) (int, error) {
	out := outboundRequest(r, target, stripPrefix)

	resp, err := f.transport.RoundTrip(out)
	if err != nil {
		f.logger.WithCtxValues(r.Context()).Warningf("failed to forward request to %s: %v", out.URL.String(), err)
		return 0, fmt.Errorf("could not forward request to %s: %w: %w", target.Host, model.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Copy response headers.
	removeHopByHopHeaders(resp.Header)
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are already sent, the client gets a truncated body.
		f.logger.WithCtxValues(r.Context()).Warningf("failed to copy response body from %s: %v", out.URL.String(), err)
	}

	return resp.StatusCode, nil
}

func outboundRequest(r *http.Request, target *url.URL, stripPrefix string) *http.Request {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	if r.ContentLength == 0 {
		out.Body = nil
	}

	path := r.URL.Path
	if stripPrefix != "" {
		path = strings.TrimPrefix(path, stripPrefix)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
	}

	out.URL = &url.URL{
		Scheme:   target.Scheme,
		Host:     target.Host,
		Path:     singleJoiningSlash(target.Path, path),
		RawQuery: r.URL.RawQuery,
	}
	out.Host = target.Host

	removeConnectionHeaders(out.Header)
	removeHopByHopHeaders(out.Header)

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := out.Header.Values("X-Forwarded-For"); len(prior) > 0 {
			clientIP = strings.Join(prior, ", ") + ", " + clientIP
		}
		out.Header.Set("X-Forwarded-For", clientIP)
	}
	if out.Header.Get("X-Forwarded-Host") == "" {
		out.Header.Set("X-Forwarded-Host", r.Host)
	}

	return out
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// hopByHopHeaders are headers that should not be forwarded by proxies.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHopHeaders(h http.Header) {
	for _, hdr := range hopByHopHeaders {
		h.Del(hdr)
	}
}

// removeConnectionHeaders removes the headers listed in the Connection header.
func removeConnectionHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, sf := range strings.Split(f, ",") {
			if sf = strings.TrimSpace(sf); sf != "" {
				h.Del(sf)
			}
		}
	}
}
