package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/phasebeam/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	RunID string // optional - defaults to the newest run
}

// InspectSlice is one slice row of an inspected run.
type InspectSlice struct {
	Index     int     `json:"index"`
	Current   float64 `json:"current"`
	Particles int     `json:"particles"`
}

// InspectResult holds the inspect output.
type InspectResult struct {
	RunID       string            `json:"run_id"`
	File        string            `json:"file"`
	Ranks       int               `json:"ranks"`
	NSlice      int               `json:"nslice"`
	TotalLength float64           `json:"total_length"`
	EmitX       *float64          `json:"emit_x"`
	EmitY       *float64          `json:"emit_y"`
	BetaX       *float64          `json:"beta_x"`
	BetaY       *float64          `json:"beta_y"`
	Keywords    map[string]string `json:"keywords"`
	Slices      []InspectSlice    `json:"slices"`
	Runs        []string          `json:"runs"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <analysis-file>",
		Short: "Show a run stored in an analysis file",
		Long: `Show the moments and slice table of a run written with output = true.

Without --run the newest run in the file is shown.

Examples:
  phasebeam inspect beam.sdds.ana.db
  phasebeam inspect beam.sdds.ana.db --run 0190a5c2-...
  phasebeam inspect beam.sdds.ana.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	// store.Open would create an empty file.
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("analysis file not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "analysis file not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open analysis file", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	id := opts.RunID
	if id == "" {
		if len(runs) == 0 {
			if opts.Format == "json" {
				return formatter.Success(InspectResult{Slices: []InspectSlice{}, Runs: runs})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "No runs found in %s\n", path)
			return nil
		}
		id = runs[len(runs)-1]
	}
	formatter.VerboseLog("Inspecting run %s of %d", id, len(runs))

	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", id), runs)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	slices, err := st.ReadSlices(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read slices", err)
	}

	result := InspectResult{
		RunID:       run.ID,
		File:        run.File,
		Ranks:       run.Ranks,
		NSlice:      run.NSlice,
		TotalLength: run.TotalLength,
		EmitX:       finite(run.Moments.EmitX),
		EmitY:       finite(run.Moments.EmitY),
		BetaX:       finite(run.Moments.Twiss.BetaX),
		BetaY:       finite(run.Moments.Twiss.BetaY),
		Keywords:    run.Keywords,
		Slices:      make([]InspectSlice, len(slices)),
		Runs:        runs,
	}
	for i, sl := range slices {
		result.Slices[i] = InspectSlice{Index: sl.Index, Current: sl.Current, Particles: sl.Count}
	}

	if opts.Format == "json" {
		return outputInspectJSON(cmd, result)
	}
	return outputInspectText(cmd, result)
}

func outputInspectJSON(cmd *cobra.Command, result InspectResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	})
}

func outputInspectText(cmd *cobra.Command, result InspectResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "File: %s (%d ranks)\n", result.File, result.Ranks)
	fmt.Fprintf(w, "Bunch length: %.3f um\n", result.TotalLength*1e6)
	fmt.Fprintf(w, "Emittance: %s / %s m\n", formatMoment(result.EmitX), formatMoment(result.EmitY))
	fmt.Fprintf(w, "Beta: %s / %s m\n", formatMoment(result.BetaX), formatMoment(result.BetaY))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Slices (%d of %d stored):\n", len(result.Slices), result.NSlice)
	for _, sl := range result.Slices {
		fmt.Fprintf(w, "  [%4d] %6d particles  %.4g A\n", sl.Index, sl.Particles, sl.Current)
	}

	return nil
}
