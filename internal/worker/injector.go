package worker

import (
	"math/rand"
	"sync"
)

// FailureInjector decides, once per DECIDING step, whether the worker crashes
type FailureInjector interface {
	ShouldCrash() bool
}

// InjectorFunc adapts a function to FailureInjector
type InjectorFunc func() bool

func (f InjectorFunc) ShouldCrash() bool {
	return f()
}

// NeverCrash returns an injector that never fires
func NeverCrash() FailureInjector {
	return InjectorFunc(func() bool { return false })
}

// Sequence returns an injector that replays outcomes in order, then never crashes
func Sequence(outcomes ...bool) FailureInjector {
	var (
		mu   sync.Mutex
		next int
	)
	return InjectorFunc(func() bool {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(outcomes) {
			return false
		}
		out := outcomes[next]
		next++
		return out
	})
}

// RandomInjector crashes when a uniform draw in [0,1) falls below the crash probability
type RandomInjector struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

// NewRandomInjector creates an injector whose draws are fully determined by seed
func NewRandomInjector(probability float64, seed int64) *RandomInjector {
	return &RandomInjector{
		rng:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

func (r *RandomInjector) ShouldCrash() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < r.probability
}
