// Package slicer rebuilds per-slice macro-particle populations from a
// replicated imported distribution.
//
// For each local slice the synthesizer selects the particles inside the
// slice window, derives the slice current, resizes the selection to the
// target macro-particle count (Reduce or Grow), draws fresh phases and, in
// binned mode, expands every particle into nbins buckets before seeding
// shot noise.
//
// All randomness comes from the Source handed to the synthesizer; with a
// fixed source the output is reproducible.
package slicer
