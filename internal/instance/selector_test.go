package instance_test

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/execgate/internal/instance"
	"github.com/slok/execgate/internal/model"
)

func TestSelectorsStayInRange(t *testing.T) {
	tests := map[string]struct {
		selector instance.Selector
	}{
		"Random selector with runtime source": {selector: instance.NewRandomSelector(nil)},
		"Random selector with seeded source":  {selector: instance.NewRandomSelector(rand.NewPCG(1, 2))},
		"Round robin selector":                {selector: instance.NewRoundRobinSelector()},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			for _, size := range []int{1, 2, 7} {
				for range 1000 {
					id := test.selector.Pick(size)
					assert.GreaterOrEqual(t, int(id), 0)
					assert.Less(t, int(id), size)
				}
			}
		})
	}
}

func TestSelectorsPanicOnEmptyPools(t *testing.T) {
	assert.Panics(t, func() { instance.NewRandomSelector(nil).Pick(0) })
	assert.Panics(t, func() { instance.NewRoundRobinSelector().Pick(-1) })
}

func TestRandomSelectorUniformity(t *testing.T) {
	tests := map[string]struct {
		selector instance.Selector
		poolSize int
	}{
		"A pool of 2 with the runtime source should be uniform": {
			selector: instance.NewRandomSelector(nil),
			poolSize: 2,
		},

		"A pool of 5 with a seeded source should be uniform": {
			selector: instance.NewRandomSelector(rand.NewPCG(42, 1024)),
			poolSize: 5,
		},
	}

	const trials = 100000

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			counts := make([]int, test.poolSize)
			for range trials {
				counts[test.selector.Pick(test.poolSize)]++
			}

			// Pearson chi-square test, the critical values at p=0.001 are 10.83 (1 df) and 18.47 (4 df).
			expected := float64(trials) / float64(test.poolSize)
			chi2 := 0.0
			for _, c := range counts {
				d := float64(c) - expected
				chi2 += d * d / expected
			}
			critical := map[int]float64{2: 10.83, 5: 18.47}[test.poolSize]
			assert.Less(t, chi2, critical, "counts: %v", counts)

			for id, c := range counts {
				freq := float64(c) / trials
				assert.Less(t, math.Abs(freq-1/float64(test.poolSize)), 0.01, "instance %d", id)
			}
		})
	}
}

func TestRoundRobinSelectorCycles(t *testing.T) {
	s := instance.NewRoundRobinSelector()

	got := []model.InstanceID{}
	for range 6 {
		got = append(got, s.Pick(3))
	}

	assert.Equal(t, []model.InstanceID{0, 1, 2, 0, 1, 2}, got)
}

func TestRandomSelectorConcurrentUse(t *testing.T) {
	s := instance.NewRandomSelector(rand.NewPCG(1, 1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				_ = s.Pick(4)
			}
		}()
	}
	wg.Wait()
}
