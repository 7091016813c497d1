// Package router is the front door of the system. It routes pool prefixes to a
// random instance of the pool, answering on its behalf when it can't be reached,
// and passes the platform routes to their services.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/slok/execgate/internal/instance"
	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/platform"
	"github.com/slok/execgate/internal/proxy"
	"github.com/slok/execgate/internal/storage"
	"github.com/slok/execgate/internal/utils/httpmw"
)

// DefaultListenAddr is the default router listen address.
const DefaultListenAddr = ":8080"

// Forwarder forwards a request to an instance.
type Forwarder interface {
	// Forward must not write to w when it returns an error.
	Forward(w http.ResponseWriter, r *http.Request, target *url.URL, stripPrefix string) (int, error)
}

// ServerConfig is the configuration for the router HTTP server.
type ServerConfig struct {
	ListenAddr string
	Routes     model.RouterConfig
	Repository storage.InstanceRepository
	Selector   instance.Selector
	Forwarder  Forwarder
	// Platform services, the route is not registered when its service is missing.
	KV        platform.KVStore
	Blobs     platform.BlobStore
	Images    platform.ImageTransformer
	Inference platform.Inference
	Workflow  http.Handler
	Metrics   http.Handler
	Observer  Observer
	Logger    log.Logger
	TimeNow   func() time.Time
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if err := c.Routes.Validate(); err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}
	for _, p := range c.Routes.Pools {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "router.Server"})
	if c.Selector == nil {
		c.Selector = instance.NewRandomSelector(nil)
	}
	if c.Forwarder == nil {
		f, err := proxy.NewForwarder(proxy.ForwarderConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create forwarder: %w", err)
		}
		c.Forwarder = f
	}
	if c.Blobs != nil && c.Images == nil {
		t, err := platform.NewDrawTransformer(platform.DrawTransformerConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create image transformer: %w", err)
		}
		c.Images = t
	}
	if c.Observer == nil {
		c.Observer = NoopObserver
	}
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Server is the front-door router HTTP server.
type Server struct {
	server    *http.Server
	cfg       ServerConfig
	repo      storage.InstanceRepository
	selector  instance.Selector
	forwarder Forwarder
	observer  Observer
	logger    log.Logger
	timeNow   func() time.Time
}

// NewServer creates a new router server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		repo:      cfg.Repository,
		selector:  cfg.Selector,
		forwarder: cfg.Forwarder,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		timeNow:   cfg.TimeNow,
	}

	handler, err := s.handler()
	if err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler of the router.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(
		httpmw.RequestID(s.logger),
		middleware.Recoverer,
		httpmw.Logger(s.logger),
	)

	for _, pool := range s.cfg.Routes.Pools {
		h, err := s.poolHandler(pool)
		if err != nil {
			return nil, err
		}
		h = s.observed(pool.Name, h)
		r.Handle(pool.Prefix, h)
		r.Handle(pool.Prefix+"/*", h)
		s.logger.Infof("pool %s with %d instances routed on %s", pool.Name, pool.Size(), pool.Prefix)
	}

	if s.cfg.KV != nil {
		r.Handle("/kv", s.observed("kv", http.HandlerFunc(s.handleKV)))
	}
	if s.cfg.Blobs != nil {
		r.Handle("/image", s.observed("image", http.HandlerFunc(s.handleImage)))
	}
	if s.cfg.Inference != nil {
		r.Handle("/ai", s.observed("ai", http.HandlerFunc(s.handleAI)))
	}
	if s.cfg.Workflow != nil {
		wf := s.observed("workflow", s.cfg.Workflow)
		r.Handle("/workflow", wf)
		r.Handle("/workflow/*", wf)
	}
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}

	notFound := s.observed("not_found", http.HandlerFunc(handleNotFound))
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	return r, nil
}

func (s *Server) observed(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.observer.RequestStarted(r.Context(), route)
		next.ServeHTTP(w, r)
	})
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("router listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("router server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Infof("shutting down router")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("router shutdown error: %w", err)
		}
		return nil
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "Not Found")
}
