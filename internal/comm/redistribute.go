package comm

import (
	"fmt"

	"github.com/roach88/phasebeam/internal/beam"
)

// Range is the coordinate interval one rank needs for its local slices.
// Empty is set when the rank owns no slices.
type Range struct {
	Min, Max float64
	Empty    bool
}

// Replicator redistributes particle records with broadcast-ownership
// semantics: every rank receives the complete record set.
//
// Slice windows may cross rank boundaries arbitrarily, so each rank keeps the
// full distribution rather than a strict partition of it.
type Replicator struct{}

// Redistribute gathers parts from every rank and returns the union,
// concatenated in rank order. want describes this rank's slice range widened
// by the slice width; it is exchanged so every rank sees the partitioning,
// but the replicated result does not depend on it.
func (Replicator) Redistribute(c Communicator, parts []beam.Particle, want Range) ([]beam.Particle, error) {
	type contribution struct {
		parts []beam.Particle
		want  Range
	}

	all, err := Gather(c, contribution{parts: parts, want: want})
	if err != nil {
		return nil, fmt.Errorf("redistribute: %w", err)
	}

	total := 0
	for _, a := range all {
		total += len(a.parts)
	}
	out := make([]beam.Particle, 0, total)
	for _, a := range all {
		out = append(out, a.parts...)
	}
	return out, nil
}
