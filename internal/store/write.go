package store

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/phasebeam/internal/beam"
	"github.com/roach88/phasebeam/internal/setup"
)

// Run is the global record of one import.
type Run struct {
	ID          string
	File        string
	Ranks       int
	NSlice      int
	TotalLength float64
	Moments     beam.Moments
	Setup       setup.Setup
	Keywords    map[string]string
}

// Slice is the summary row of one dumped slice.
type Slice struct {
	Index   int
	Current float64
	Count   int
}

// WriteRun inserts the run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// Only the global emittance, Twiss and mean energy of Moments are kept.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	setupJSON, err := marshalSetup(run.Setup)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	kwJSON, err := marshalKeywords(run.Keywords)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	m := run.Moments
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, file, ranks, nslice, ttotal, ex, ey, bx, by, ax, ay, gamma, setup, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.File,
		run.Ranks,
		run.NSlice,
		run.TotalLength,
		nullable(m.EmitX),
		nullable(m.EmitY),
		nullable(m.Twiss.BetaX),
		nullable(m.Twiss.BetaY),
		nullable(m.Twiss.AlphaX),
		nullable(m.Twiss.AlphaY),
		nullable(m.GammaAvg),
		setupJSON,
		kwJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteSlice stores one slice and its particles in a single transaction.
// The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteSlice(ctx context.Context, runID string, index int, current float64, parts []beam.Particle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write slice %d: begin tx: %w", index, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO slices (run, idx, current, count)
		VALUES (?, ?, ?, ?)
	`, runID, index, current, len(parts)); err != nil {
		return fmt.Errorf("write slice %d: %w", index, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO particles (run, slice, idx, theta, gamma, x, y, px, py)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write slice %d: prepare: %w", index, err)
	}
	defer stmt.Close()

	for i, p := range parts {
		if _, err := stmt.ExecContext(ctx, runID, index, i, p.Theta, p.Gamma, p.X, p.Y, p.Px, p.Py); err != nil {
			return fmt.Errorf("write slice %d particle %d: %w", index, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write slice %d: commit: %w", index, err)
	}
	return nil
}

// WriteBeam stores every local slice of b, numbering them from offset.
func (s *Store) WriteBeam(ctx context.Context, runID string, offset int, b *beam.Beam) error {
	for i := range b.Slices {
		if err := s.WriteSlice(ctx, runID, offset+i, b.Current[i], b.Slices[i]); err != nil {
			return err
		}
	}
	return nil
}

// nullable maps NaN and infinities, which SQLite cannot hold as REAL, to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
