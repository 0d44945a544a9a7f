package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/config"
	"github.com/roach88/phasebeam/internal/store"
)

// runStatus is the outcome of the run row write broadcast by rank 0.
type runStatus struct {
	ID      string
	Failure string
}

// persist writes the analysis file collectively: rank 0 creates the run
// row, then every rank stores its own slices. All ranks agree on failure.
func (im *Importer) persist(ctx context.Context, o *config.Options, opts map[string]string, res *Result) (string, error) {
	path := o.File + store.Suffix
	im.log.Info("writing analysis to file", zap.String("path", path))

	var st runStatus
	if im.comm.Rank() == 0 {
		st.ID = im.cfg.RunIDs.Generate()
		run := store.Run{
			ID:          st.ID,
			File:        o.File,
			Ranks:       im.comm.Size(),
			NSlice:      len(res.Layout.Positions),
			TotalLength: res.TotalLength,
			Moments:     res.Moments,
			Setup:       im.cfg.Setup,
			Keywords:    opts,
		}
		if err := writeRun(ctx, path, run); err != nil {
			st.Failure = err.Error()
		}
	}

	st, err := comm.Bcast(im.comm, st, 0)
	if err != nil {
		return "", newError(ErrCodeCollective, im.state, "broadcast output status", err)
	}
	if st.Failure != "" {
		return "", newError(ErrCodeOutput, im.state, "write run", errors.New(st.Failure))
	}

	writeErr := writeSlices(ctx, path, st.ID, res)
	failed := 0
	if writeErr != nil {
		failed = 1
	}
	nfailed, err := comm.AllreduceSumInt(im.comm, failed)
	if err != nil {
		return "", newError(ErrCodeCollective, im.state, "agree on output status", err)
	}
	if nfailed > 0 {
		if writeErr == nil {
			writeErr = fmt.Errorf("%d rank(s) failed to write slices", nfailed)
		}
		return "", newError(ErrCodeOutput, im.state, "write slices", writeErr)
	}
	return st.ID, nil
}

func writeRun(ctx context.Context, path string, run store.Run) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.WriteRun(ctx, run)
}

func writeSlices(ctx context.Context, path, runID string, res *Result) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.WriteBeam(ctx, runID, res.Layout.NodeOffset, res.Beam)
}
