package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/phasebeam/internal/comm"
	"github.com/roach88/phasebeam/internal/config"
	"github.com/roach88/phasebeam/internal/importer"
	"github.com/roach88/phasebeam/internal/sdds"
	"github.com/roach88/phasebeam/internal/setup"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Ranks     int
	Converter string
}

// ImportSummary describes a finished import.
type ImportSummary struct {
	Deck        string   `json:"deck"`
	File        string   `json:"file"`
	Ranks       int      `json:"ranks"`
	Slices      int      `json:"slices"`
	Particles   int      `json:"particles"`
	TotalLength float64  `json:"total_length"`
	EmitX       *float64 `json:"emit_x"`
	EmitY       *float64 `json:"emit_y"`
	BetaX       *float64 `json:"beta_x"`
	BetaY       *float64 `json:"beta_y"`
	AlphaX      *float64 `json:"alpha_x"`
	AlphaY      *float64 `json:"alpha_y"`
	RunID       string   `json:"run_id,omitempty"`
	States      []string `json:"states"`
}

// String renders the summary for text output.
func (s ImportSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Imported %s\n", s.File)
	fmt.Fprintf(&b, "  ranks:        %d\n", s.Ranks)
	fmt.Fprintf(&b, "  slices:       %d\n", s.Slices)
	fmt.Fprintf(&b, "  particles:    %d\n", s.Particles)
	fmt.Fprintf(&b, "  bunch length: %.3f um\n", s.TotalLength*1e6)
	fmt.Fprintf(&b, "  emittance:    %s / %s m\n", formatMoment(s.EmitX), formatMoment(s.EmitY))
	fmt.Fprintf(&b, "  beta:         %s / %s m\n", formatMoment(s.BetaX), formatMoment(s.BetaY))
	fmt.Fprintf(&b, "  alpha:        %s / %s\n", formatMoment(s.AlphaX), formatMoment(s.AlphaY))
	if s.RunID != "" {
		fmt.Fprintf(&b, "  analysis run: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "  states:       %s", strings.Join(s.States, " → "))
	return b.String()
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <deck>",
		Short: "Import an external distribution",
		Long: `Import the distribution named by the deck's &sddsbeam section.

The distribution is converted once, read in parallel by every rank,
optionally centered and matched, and sliced into macro particle
populations. Diagnostics are logged to stderr as JSON.

Exit codes:
  0 - Import succeeded
  1 - Import failed (conversion, read, collective or output error)
  2 - Command error (invalid deck or keywords)

Examples:
  phasebeam import fel.yaml
  phasebeam import fel.yaml --ranks 4
  phasebeam import fel.yaml --converter ./sdds2cols.sh --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Ranks, "ranks", 1, "number of parallel ranks")
	cmd.Flags().StringVar(&opts.Converter, "converter", sdds.DefaultConverterCommand, "conversion command run on the distribution file")

	return cmd
}

func runImport(opts *ImportOptions, deckPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Ranks < 1 {
		msg := fmt.Sprintf("--ranks must be at least 1, got %d", opts.Ranks)
		_ = formatter.Error(ErrCodeDeck, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	deck, err := setup.LoadDeck(deckPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDeck, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid deck", err)
	}
	formatter.VerboseLog("Loaded deck %s with keywords %v", deckPath, deck.Keys())

	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	keywords := deck.Options()
	results := make([]*importer.Result, opts.Ranks)
	errs := make([]error, opts.Ranks)
	var trace []importer.TraceStep

	w := comm.NewWorld(opts.Ranks)
	_ = w.Run(ctx, func(ctx context.Context, c comm.Communicator) error {
		im := importer.New(c, importer.Config{
			Setup:     deck.Setup,
			Time:      deck.Time,
			Lattice:   deck.Lattice,
			Converter: sdds.ScriptConverter{Command: opts.Converter},
			Logger:    logger,
			Usage:     cmd.ErrOrStderr(),
		})
		res, err := im.Import(ctx, keywords)
		results[c.Rank()], errs[c.Rank()] = res, err
		if c.Rank() == 0 {
			trace = im.Trace()
		}
		return err
	})

	if err := firstError(errs); err != nil {
		code := string(importer.CodeOf(err))
		if code == "" {
			code = string(importer.ErrCodeCollective)
		}
		_ = formatter.Error(code, err.Error(), statesOf(trace))
		return WrapExitError(importExitCode(err), "import failed", err)
	}

	summary := ImportSummary{
		Deck:        deckPath,
		File:        keywords[config.KeyFile],
		Ranks:       opts.Ranks,
		TotalLength: results[0].TotalLength,
		RunID:       results[0].RunID,
		States:      statesOf(trace),
	}
	for _, res := range results {
		summary.Slices += res.Beam.Len()
		for _, parts := range res.Beam.Slices {
			summary.Particles += len(parts)
		}
	}
	m := results[0].Moments
	summary.EmitX, summary.EmitY = finite(m.EmitX), finite(m.EmitY)
	summary.BetaX, summary.BetaY = finite(m.Twiss.BetaX), finite(m.Twiss.BetaY)
	summary.AlphaX, summary.AlphaY = finite(m.Twiss.AlphaX), finite(m.Twiss.AlphaY)

	return formatter.Success(summary)
}

// firstError returns the error of the lowest failing rank.
func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func statesOf(trace []importer.TraceStep) []string {
	out := make([]string, len(trace))
	for i, step := range trace {
		out[i] = string(step.State)
	}
	return out
}

// finite drops values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatMoment(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}
