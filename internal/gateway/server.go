// Package gateway exposes the command execution service over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/utils/httpmw"
)

const (
	// DefaultListenAddr is the default gateway listen address.
	DefaultListenAddr = ":8081"
	// ServiceName is reported by the health check.
	ServiceName = "Linux Command Executor"
)

// CommandHandler handles a command request.
type CommandHandler interface {
	Handle(ctx context.Context, req model.CommandRequest) model.GatewayResponse
}

// ServerConfig is the configuration for the gateway HTTP server.
type ServerConfig struct {
	ListenAddr string
	Service    CommandHandler
	Logger     log.Logger
	TimeNow    func() time.Time
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Service == nil {
		return fmt.Errorf("service is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "gateway.Server"})
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Server is the execution gateway HTTP server.
type Server struct {
	server  *http.Server
	service CommandHandler
	logger  log.Logger
	timeNow func() time.Time
}

// NewServer creates a new gateway server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}

	s := &Server{
		service: cfg.Service,
		logger:  cfg.Logger,
		timeNow: cfg.TimeNow,
	}

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler of the gateway.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmw.RequestID(s.logger),
		s.recoverer,
		corsAllowAll(),
		httpmw.Logger(s.logger),
	)

	r.Get("/", s.handleHealth)
	r.Post("/run", s.handleRun)

	return r
}

// Run starts the server and blocks until ctx is cancelled. Termination doesn't
// wait for in-flight commands.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("gateway listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Infof("shutting down gateway")
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("gateway shutdown error: %w", err)
		}
		return nil
	}
}
