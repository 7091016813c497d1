package platform

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/slok/execgate/internal/log"
)

// Forwarder forwards a request to a target.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, target *url.URL, stripPrefix string) (int, error)
}

// ServiceForwarderConfig is the configuration for the service forwarder.
type ServiceForwarderConfig struct {
	URL       string
	Forwarder Forwarder
	Logger    log.Logger
}

func (c *ServiceForwarderConfig) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Forwarder == nil {
		return fmt.Errorf("forwarder is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "platform.ServiceForwarder"})
	return nil
}

// ServiceForwarder passes raw requests to a secondary service.
type ServiceForwarder struct {
	target    *url.URL
	forwarder Forwarder
	logger    log.Logger
}

// NewServiceForwarder creates a new service forwarder.
func NewServiceForwarder(cfg ServiceForwarderConfig) (*ServiceForwarder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	target, err := url.Parse(cfg.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid config: invalid service url %q", cfg.URL)
	}

	return &ServiceForwarder{
		target:    target,
		forwarder: cfg.Forwarder,
		logger:    cfg.Logger,
	}, nil
}

// ServeHTTP satisfies http.Handler.
func (s *ServiceForwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := s.forwarder.Forward(w, r, s.target, ""); err != nil {
		s.logger.WithCtxValues(r.Context()).Errorf("service forward failed: %s", err)
		http.Error(w, "Service unavailable", http.StatusBadGateway)
	}
}
