// Package sampling provides weighted and uniform random choice over an
// injectable source so callers can make selection deterministic in tests.
package sampling

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

// Sampler picks items at random. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	src Source
}

// New returns a Sampler over src.
func New(src Source) *Sampler {
	return &Sampler{src: src}
}

// NewSeeded returns a Sampler backed by a PCG generator. A zero seed draws
// from the clock.
func NewSeeded(seed int64) *Sampler {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return New(rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)))
}

func (s *Sampler) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// Intn returns a uniform index in [0, n). It panics if n <= 0.
func (s *Sampler) Intn(n int) int {
	if n <= 0 {
		panic("sampling: Intn called with non-positive n")
	}
	i := int(s.float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Weighted returns the index chosen from weights, which need not sum to one.
// Non-positive weights are never chosen. It returns -1 when no weight is
// positive.
func (s *Sampler) Weighted(weights []float64) int {
	var total float64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return -1
	}

	target := s.float() * total
	var acc float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return i
		}
	}
	return last
}

// Choice returns a uniformly chosen element of items and false when items is empty.
func Choice[T any](s *Sampler, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.Intn(len(items))], true
}

// Fixed is a Source that replays values in order, repeating the last one.
type Fixed struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewFixed returns a Source that yields values in order.
func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

// Float64 implements Source.
func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next]
	if f.next < len(f.values)-1 {
		f.next++
	}
	return v
}
