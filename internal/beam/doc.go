// Package beam provides the data model shared by the import pipeline.
//
// This package contains type definitions and small helpers only. All other
// internal packages import beam; beam imports nothing internal.
//
// Key conventions:
//   - Theta is the temporal coordinate. During ingestion it holds the
//     longitudinal position in meters; after slicing it holds the phase.
//   - Gamma is the normalized energy.
//   - Once a particle enters a slice, Px and Py are energy-weighted
//     (px·γ, py·γ). RawDistribution holds unweighted angles.
package beam
