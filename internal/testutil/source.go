package testutil

import "sync"

// SequenceSource replays a fixed list of uniform draws, wrapping around at
// the end.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	idx    int
}

// NewSequenceSource creates a source returning values in order.
// With no values it always returns 0.5.
func NewSequenceSource(values ...float64) *SequenceSource {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &SequenceSource{values: values}
}

// Float64 returns the next value.
func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.idx%len(s.values)]
	s.idx++
	return v
}

// Draws returns how many values have been handed out.
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// Reset starts the sequence over.
func (s *SequenceSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = 0
}
