// Command phasebeam imports external particle distributions into sliced
// macro particle beams.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/phasebeam/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Cobra already printed errors of commands that don't silence them.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
