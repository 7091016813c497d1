package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slok/execgate/pkg/lib/log"
	"github.com/slok/execgate/internal/model"
)

const (
	// DefaultURL is the gateway address used when none is configured.
	DefaultURL = "http://127.0.0.1:8081"
	// DefaultTimeout is the request timeout, above the gateway command timeout.
	DefaultTimeout = 40 * time.Second
)

// Config configures the SDK client.
//
// All fields are optional, an empty Config{} talks to [DefaultURL].
type Config struct {
	// URL is the gateway base URL.
	// Default: http://127.0.0.1:8081.
	URL string

	// HTTPClient is the client used for the requests.
	// Default: a client with [DefaultTimeout].
	HTTPClient *http.Client

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.URL == "" {
		c.URL = DefaultURL
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid gateway URL %q: %w", c.URL, ErrNotValid)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("gateway URL %q must be an absolute http(s) URL: %w", c.URL, ErrNotValid)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lib.Client"})

	return nil
}

// Client is the main SDK entry point to run commands on a gateway.
//
// Create a Client with [New]. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a new SDK client.
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// Health returns the gateway health check.
//
// Returns [ErrUnavailable] if the gateway can't be reached.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp struct {
		Status    string  `json:"status"`
		Service   string  `json:"service"`
		Timestamp float64 `json:"timestamp"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return nil, err
	}

	return &Health{
		Status:    resp.Status,
		Service:   resp.Service,
		Timestamp: model.FromEpochSeconds(resp.Timestamp),
	}, nil
}

// Run asks the gateway to run a command and returns its result.
//
// A gateway refusal is not an error, it's reported in the result, use
// [RunResult.Err] to get it as one.
//
// Returns [ErrNotValid] if the command is empty, or [ErrUnavailable] if the
// gateway can't be reached.
func (c *Client) Run(ctx context.Context, command string) (*RunResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command is required: %w", ErrNotValid)
	}

	body, err := json.Marshal(model.NewCommandRequest(command))
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	var resp model.GatewayResponse
	if err := c.do(ctx, http.MethodPost, "/run", body, &resp); err != nil {
		return nil, err
	}

	res := fromGatewayResponse(resp)
	if !res.Success {
		c.logger.Debugf("gateway rejected command %q: %s", command, res.Message)
	}

	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not call gateway: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway answered %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(msg)), ErrUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode gateway response: %w", err)
	}

	return nil
}
