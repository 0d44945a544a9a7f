package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/phasebeam/internal/beam"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun returns the run record with the given id.
// Values stored as NULL come back as NaN.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var (
		run                          Run
		ex, ey, bx, by, ax, ay, gam sql.NullFloat64
		setupJSON, kwJSON           string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, file, ranks, nslice, ttotal, ex, ey, bx, by, ax, ay, gamma, setup, keywords
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID, &run.File, &run.Ranks, &run.NSlice, &run.TotalLength,
		&ex, &ey, &bx, &by, &ax, &ay, &gam,
		&setupJSON, &kwJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Moments.EmitX = orNaN(ex)
	run.Moments.EmitY = orNaN(ey)
	run.Moments.Twiss = beam.Twiss{
		BetaX:  orNaN(bx),
		BetaY:  orNaN(by),
		AlphaX: orNaN(ax),
		AlphaY: orNaN(ay),
	}
	run.Moments.GammaAvg = orNaN(gam)

	if run.Setup, err = unmarshalSetup(setupJSON); err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Keywords, err = unmarshalKeywords(kwJSON); err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the ids of every run in the file in ascending order.
// UUIDv7 ids sort by creation time, so the last id is the newest run.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return ids, nil
}

// ReadSlices returns the slice summaries of a run ordered by index.
// Returns an empty slice (not nil) if the run has no slices.
func (s *Store) ReadSlices(ctx context.Context, runID string) ([]Slice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, current, count
		FROM slices
		WHERE run = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slices: %w", err)
	}
	defer rows.Close()

	slices := []Slice{}
	for rows.Next() {
		var sl Slice
		if err := rows.Scan(&sl.Index, &sl.Current, &sl.Count); err != nil {
			return nil, fmt.Errorf("scan slice: %w", err)
		}
		slices = append(slices, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slices: %w", err)
	}
	return slices, nil
}

// ReadParticles returns the dumped particles of one slice in their original
// order. Returns an empty slice (not nil) if none were stored.
func (s *Store) ReadParticles(ctx context.Context, runID string, slice int) ([]beam.Particle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT theta, gamma, x, y, px, py
		FROM particles
		WHERE run = ? AND slice = ?
		ORDER BY idx ASC
	`, runID, slice)
	if err != nil {
		return nil, fmt.Errorf("query particles: %w", err)
	}
	defer rows.Close()

	parts := []beam.Particle{}
	for rows.Next() {
		var p beam.Particle
		if err := rows.Scan(&p.Theta, &p.Gamma, &p.X, &p.Y, &p.Px, &p.Py); err != nil {
			return nil, fmt.Errorf("scan particle: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate particles: %w", err)
	}
	return parts, nil
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
