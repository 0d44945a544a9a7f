package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/phasebeam/internal/config"
)

// NewKeywordsCommand creates the keywords command.
func NewKeywordsCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keywords",
		Short:         "List the &sddsbeam keywords and their defaults",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Usage(cmd.OutOrStdout())
			return nil
		},
	}
}
