// Package backend is the demo application that runs on every pool instance.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/utils/env"
)

const (
	// DefaultListenAddr is the default backend listen address.
	DefaultListenAddr = ":8080"
	// DefaultMessage is the message returned by the API endpoint.
	DefaultMessage = "From Container!!!"
	// DefaultFibN is the fibonacci number calculated by the heavy compute endpoint.
	DefaultFibN = 40
	// MaxFibN bounds the heavy compute endpoint n query parameter.
	MaxFibN = 45
)

// DefaultEnvKeys are the environment variables exposed by the response headers endpoint.
var DefaultEnvKeys = []string{
	"CLOUDFLARE_COUNTRY_A2",
	"CLOUDFLARE_DEPLOYMENT_ID",
	"CLOUDFLARE_LOCATION",
	"CLOUDFLARE_NODE_ID",
	"CLOUDFLARE_PLACEMENT_ID",
	"CLOUDFLARE_REGION",
	"APP_ENV",
	"SEVICE",
	"MESSAGE",
}

// ServerConfig is the configuration for the backend HTTP server.
type ServerConfig struct {
	ListenAddr string
	Message    string
	Value      int
	FibN       int
	EnvKeys    []string
	LookupEnv  func(string) (string, bool)
	Logger     log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Message == "" {
		c.Message = DefaultMessage
	}
	if c.Value == 0 {
		c.Value = 101
	}
	if c.FibN == 0 {
		c.FibN = DefaultFibN
	}
	if c.FibN < 0 || c.FibN > MaxFibN {
		return fmt.Errorf("fib n must be in the [0, %d] range, got: %d", MaxFibN, c.FibN)
	}
	if c.EnvKeys == nil {
		c.EnvKeys = DefaultEnvKeys
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.Server"})
	return nil
}

// Server is the demo backend HTTP server.
type Server struct {
	server *http.Server
	cfg    ServerConfig
	logger log.Logger
}

// NewServer creates a new backend server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler of the backend.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/api1", s.handleAPI1)
	r.Get("/api/heavycompute", s.handleHeavyCompute)
	r.Get("/api/responseheaders", s.handleResponseHeaders)
	return r
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("backend listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("backend server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Infof("shutting down backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("backend shutdown error: %w", err)
		}
		return nil
	}
}

type apiResponse struct {
	Message string `json:"message"`
	Value   int    `json:"value"`
}

func (s *Server) handleAPI1(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Message: s.cfg.Message, Value: s.cfg.Value})
}

type heavyComputeResponse struct {
	Message string `json:"message"`
	Fib     int    `json:"fib"`
	N       int    `json:"n"`
}

func (s *Server) handleHeavyCompute(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.FibN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > MaxFibN {
			http.Error(w, fmt.Sprintf("n must be in the [0, %d] range", MaxFibN), http.StatusBadRequest)
			return
		}
		n = v
	}

	writeJSON(w, http.StatusOK, heavyComputeResponse{
		Message: "Heavy compute done from Container!",
		Fib:     fib(n),
		N:       n,
	})
}

type responseHeadersResponse struct {
	Headers              map[string]string `json:"headers"`
	EnvironmentVariables map[string]string `json:"environment_variables"`
}

func (s *Server) handleResponseHeaders(w http.ResponseWriter, r *http.Request) {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = v[0]
	}

	writeJSON(w, http.StatusOK, responseHeadersResponse{
		Headers:              headers,
		EnvironmentVariables: env.Select(s.cfg.EnvKeys, s.cfg.LookupEnv),
	})
}

// fib is deliberately exponential, it's the CPU load of the heavy compute endpoint.
func fib(n int) int {
	if n <= 1 {
		return n
	}
	return fib(n-1) + fib(n-2)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
