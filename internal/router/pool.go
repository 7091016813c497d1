package router

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

func (s *Server) poolHandler(pool model.Pool) (http.Handler, error) {
	targets := make([]*url.URL, 0, pool.Size())
	for _, raw := range pool.Instances {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("pool %s has an invalid instance url %q: %w", pool.Name, raw, err)
		}
		targets = append(targets, u)
	}

	stripPrefix := ""
	if pool.StripPrefix {
		stripPrefix = pool.Prefix
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := s.logger.WithCtxValues(ctx).WithValues(log.Kv{"pool": pool.Name})

		id := s.selector.Pick(pool.Size())
		s.observer.InstanceSelected(ctx, pool.Name, id)

		// Recorded before forwarding, a failed forward reports the previous contact.
		previous, err := s.repo.RecordContact(ctx, pool.Name, id, s.timeNow())
		if err != nil {
			logger.Errorf("could not record contact with instance %d: %s", id, err)
			previous = nil
		}

		start := time.Now()
		status, err := s.forwarder.Forward(w, r, targets[id], stripPrefix)
		s.observer.ForwardResult(ctx, pool.Name, id, status, err, time.Since(start))
		if err != nil {
			writeFallback(w, s.timeNow(), pool.Name, id, previous)
		}
	}), nil
}
