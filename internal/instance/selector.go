// Package instance contains the strategies used to choose a pool instance per request.
package instance

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/slok/execgate/internal/model"
)

// Selector picks an instance from a pool of the given size.
// Implementations must be safe for concurrent use and must panic on
// non-positive pool sizes, pools are validated before being served.
type Selector interface {
	Pick(poolSize int) model.InstanceID
}

// SelectorFunc is a helper to implement Selector with functions.
type SelectorFunc func(poolSize int) model.InstanceID

func (f SelectorFunc) Pick(poolSize int) model.InstanceID { return f(poolSize) }

// RandomSelector picks instances uniformly at random, without affinity or load awareness.
type RandomSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSelector returns a uniform random selector. A nil source uses the
// runtime random generator.
func NewRandomSelector(src rand.Source) *RandomSelector {
	s := &RandomSelector{}
	if src != nil {
		s.rnd = rand.New(src)
	}
	return s
}

func (s *RandomSelector) Pick(poolSize int) model.InstanceID {
	if poolSize <= 0 {
		panic("instance: pool size must be positive")
	}

	if s.rnd == nil {
		return model.InstanceID(rand.IntN(poolSize))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return model.InstanceID(s.rnd.IntN(poolSize))
}

// RoundRobinSelector cycles through the instances in order.
type RoundRobinSelector struct {
	next atomic.Uint64
}

// NewRoundRobinSelector returns a round robin selector.
func NewRoundRobinSelector() *RoundRobinSelector { return &RoundRobinSelector{} }

func (s *RoundRobinSelector) Pick(poolSize int) model.InstanceID {
	if poolSize <= 0 {
		panic("instance: pool size must be positive")
	}

	n := s.next.Add(1) - 1
	return model.InstanceID(n % uint64(poolSize))
}
