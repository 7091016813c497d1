package router

import (
	"context"
	"time"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// Observer is notified of the router request lifecycle.
type Observer interface {
	RequestStarted(ctx context.Context, route string)
	InstanceSelected(ctx context.Context, pool string, id model.InstanceID)
	// ForwardResult has a nil err and the instance status when the forward succeeded.
	ForwardResult(ctx context.Context, pool string, id model.InstanceID, status int, err error, duration time.Duration)
}

// NoopObserver doesn't do anything.
const NoopObserver = noopObserver(0)

type noopObserver int

func (noopObserver) RequestStarted(context.Context, string) {}

func (noopObserver) InstanceSelected(context.Context, string, model.InstanceID) {}

func (noopObserver) ForwardResult(context.Context, string, model.InstanceID, int, error, time.Duration) {}

// MultiObserver notifies all its observers in order.
type MultiObserver []Observer

func (m MultiObserver) RequestStarted(ctx context.Context, route string) {
	for _, o := range m {
		o.RequestStarted(ctx, route)
	}
}

func (m MultiObserver) InstanceSelected(ctx context.Context, pool string, id model.InstanceID) {
	for _, o := range m {
		o.InstanceSelected(ctx, pool, id)
	}
}

func (m MultiObserver) ForwardResult(ctx context.Context, pool string, id model.InstanceID, status int, err error, duration time.Duration) {
	for _, o := range m {
		o.ForwardResult(ctx, pool, id, status, err, duration)
	}
}

// NewLogObserver returns an observer that logs the request lifecycle.
func NewLogObserver(logger log.Logger) Observer {
	if logger == nil {
		logger = log.Noop
	}
	return logObserver{logger: logger.WithValues(log.Kv{"svc": "router.LogObserver"})}
}

type logObserver struct {
	logger log.Logger
}

func (l logObserver) RequestStarted(ctx context.Context, route string) {
	l.logger.WithCtxValues(ctx).Debugf("request started on route %s", route)
}

func (l logObserver) InstanceSelected(ctx context.Context, pool string, id model.InstanceID) {
	l.logger.WithCtxValues(ctx).WithValues(log.Kv{"pool": pool, "instance": int(id)}).Debugf("instance selected")
}

func (l logObserver) ForwardResult(ctx context.Context, pool string, id model.InstanceID, status int, err error, duration time.Duration) {
	logger := l.logger.WithCtxValues(ctx).WithValues(log.Kv{"pool": pool, "instance": int(id), "duration": duration.String()})
	if err != nil {
		logger.Warningf("instance unavailable: %s", err)
		return
	}
	logger.WithValues(log.Kv{"status": status}).Debugf("request forwarded")
}
