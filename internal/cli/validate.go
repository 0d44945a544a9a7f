package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/phasebeam/internal/config"
	"github.com/roach88/phasebeam/internal/setup"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Slices  int      `json:"slices,omitempty"`
	Unknown []string `json:"unknown,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <deck>",
		Short: "Validate a deck without importing",
		Long: `Validate the deck schema and the &sddsbeam keywords.

No file is converted or read. Faster than import for checking a deck
before a long run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, deckPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	deck, err := setup.LoadDeck(deckPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDeck, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid deck", err)
	}
	formatter.VerboseLog("Checking %d keyword(s): %v", len(deck.Keys()), deck.Keys())

	result := validateDeck(deck)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Deck valid (%d slices)\n", result.Slices)
	return nil
}

// validateDeck checks the keywords against the deck's setup, the same way
// the importer does before it touches any file.
func validateDeck(deck *setup.Deck) ValidationResult {
	_, err := config.Parse(deck.Options(), config.Defaults{
		ReferenceEnergy: deck.Setup.ReferenceEnergy,
		Matched:         deck.Lattice.Matched,
	})

	result := ValidationResult{Valid: true}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		result.Valid = false
		result.Unknown = cfgErr.Unknown
		result.Missing = cfgErr.Missing
		result.Invalid = cfgErr.Invalid
	}
	if err := deck.Setup.Check(); err != nil {
		result.Valid = false
		result.Invalid = append(result.Invalid, err.Error())
	}
	if result.Valid {
		result.Slices = len(setup.Layout(deck.Time, deck.Setup, 1, 0).Positions)
	}
	return result
}

// outputValidationErrors outputs every keyword problem at once.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	count := len(result.Unknown) + len(result.Missing) + len(result.Invalid)

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    "CONFIGURATION",
				Message: fmt.Sprintf("%d keyword error(s)", count),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, k := range result.Unknown {
		fmt.Fprintf(formatter.Writer, "  unknown keyword: %s\n", k)
	}
	for _, k := range result.Missing {
		fmt.Fprintf(formatter.Writer, "  missing keyword: %s\n", k)
	}
	for _, msg := range result.Invalid {
		fmt.Fprintf(formatter.Writer, "  %s\n", msg)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}
