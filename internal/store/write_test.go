package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1")

	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got, "run should survive a round trip")
}

func TestWriteRun_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("run-1")
	second := createTestRun("run-1")
	second.File = "other.sdds"

	require.NoError(t, s.WriteRun(ctx, first))
	require.NoError(t, s.WriteRun(ctx, second), "duplicate id is not an error")

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "beam.sdds", got.File, "first write wins")
}

func TestWriteRun_NonFiniteMomentsStoredAsNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-nan")
	run.Moments.Twiss.BetaX = math.NaN()
	run.Moments.Twiss.AlphaY = math.Inf(1)

	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-nan")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Moments.Twiss.BetaX))
	assert.True(t, math.IsNaN(got.Moments.Twiss.AlphaY), "infinity reads back as NaN")
	assert.Equal(t, 12.0, got.Moments.Twiss.BetaY)
}

func TestWriteSlice_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))

	parts := createTestParticles(5, 0)
	require.NoError(t, s.WriteSlice(ctx, "run-1", 2, 1.5e3, parts))

	slices, err := s.ReadSlices(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, Slice{Index: 2, Current: 1.5e3, Count: 5}, slices[0])

	got, err := s.ReadParticles(ctx, "run-1", 2)
	require.NoError(t, err)
	assert.Equal(t, parts, got, "particles keep their order")
}

func TestWriteSlice_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteSlice(context.Background(), "missing", 0, 1, createTestParticles(1, 0))

	require.Error(t, err, "foreign key on runs must reject orphan slices")
}

func TestWriteSlice_DuplicateRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))
	require.NoError(t, s.WriteSlice(ctx, "run-1", 0, 1, createTestParticles(2, 0)))

	err := s.WriteSlice(ctx, "run-1", 0, 1, createTestParticles(3, 10))
	require.Error(t, err)

	got, err := s.ReadParticles(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2, "failed slice write must not leave particles behind")
}
