// Package store provides SQLite-backed analysis output for imported beams.
//
// An analysis file holds one row per import run with the global emittance
// and Twiss values, one row per slice with its current and particle count,
// and a dump of every slice's particles.
//
//   - runs: run identity, source file, rank and slice counts, bunch length,
//     final moments, and the setup and keywords as JSON
//   - slices: (run, idx) with current and count
//   - particles: (run, slice, idx) with the six phase-space coordinates
//
// Reads are ordered by slice index and particle index so dumps compare
// deterministically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every rank may open the same file; writers serialize on SQLite's lock.
package store
