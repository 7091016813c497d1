package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// HTTPInferenceConfig is the configuration for the HTTP inference client.
type HTTPInferenceConfig struct {
	// BaseURL is the API base, models are run with POST {BaseURL}/ai/run/{model}.
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *HTTPInferenceConfig) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "platform.HTTPInference"})
	return nil
}

// HTTPInference runs models on a Workers AI style REST API.
type HTTPInference struct {
	baseURL string
	token   string
	client  *http.Client
	logger  log.Logger
}

// NewHTTPInference creates a new HTTP inference client.
func NewHTTPInference(cfg HTTPInferenceConfig) (*HTTPInference, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HTTPInference{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

type inferenceRequest struct {
	Prompt string `json:"prompt"`
}

type inferenceEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// Run runs the model with the prompt and returns the model result.
func (h *HTTPInference) Run(ctx context.Context, modelName, prompt string) (json.RawMessage, error) {
	body, err := json.Marshal(inferenceRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	url := h.baseURL + "/ai/run/" + strings.TrimPrefix(modelName, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call inference API: %w: %w", model.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("could not read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.logger.Warningf("Inference API returned %d for model %s", resp.StatusCode, modelName)
		return nil, fmt.Errorf("inference API returned status %d: %w", resp.StatusCode, model.ErrUnavailable)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("inference API returned invalid JSON")
	}

	// The REST API wraps the model output in a result envelope.
	var env inferenceEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Result) > 0 {
		return env.Result, nil
	}

	return json.RawMessage(data), nil
}
