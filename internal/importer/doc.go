// Package importer runs the external beam import pipeline on one rank.
//
// Every rank of a comm.World runs its own Importer with the same options.
// The pipeline walks a fixed sequence of states:
//
//	Configured → FileConverted → Ingested → Analyzed → [Centered] → [Matched]
//	→ [ReAnalyzed] → Redistributed → Sliced → [PersistedAnalysis] → Done
//
// Bracketed states depend on the center, match and output keywords. Each
// reached state is appended to the run trace with a logical sequence number.
//
// # Collective discipline
//
// Every rank executes the same collectives in the same order. Keyword
// errors are found by each rank on its own before any communication.
// Conversion and read failures are agreed on through a collective so all
// ranks abort at the same point.
//
// # Randomness
//
// Each rank derives its own generators from the setup seed: one for
// population resizing and phase assignment, one for shot noise. Nothing
// reads ambient random state.
package importer
