package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/phasebeam/internal/sdds"
	"github.com/roach88/phasebeam/internal/testutil"
)

// deckTemplate is a deck whose sddsbeam file is filled in per test.
const deckTemplate = `setup:
  gamma0: 300
  lambda0: 1.0e-3
  sample: 10
  npart: %d
  nbins: 4
  seed: 42
time:
  s0: 0.05
  slen: 0.2
sddsbeam:
  file: %q
  charge: 1.0e-9
  slicewidth: 0.1
  center: true
%s`

// writeDeck writes a deck naming dir/beam.sdds and returns its path.
// extra is appended to the sddsbeam section, indented two spaces.
func writeDeck(t *testing.T, dir string, npart int, extra string) string {
	t.Helper()
	content := fmt.Sprintf(deckTemplate, npart, filepath.Join(dir, "beam.sdds"), extra)
	path := filepath.Join(dir, "fel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeConverted places the converter's output next to the deck so a
// no-op converter command suffices.
func writeConverted(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "beam.sdds"+sdds.ConvertedSuffix)
	require.NoError(t, testutil.Uniform(1000).WriteColumnFile(path))
}

// requireCommand skips the test if name is not on PATH.
func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
