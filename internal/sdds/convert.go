package sdds

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultConverterCommand is the conversion script looked up on PATH.
const DefaultConverterCommand = "sdds2cols-dist.sh"

// ConvertedSuffix is appended to the input path by the conversion script.
const ConvertedSuffix = ".cols"

// Converter turns an external distribution file into a column file and
// returns the path of the result.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConversionError reports a failed conversion subprocess.
type ConversionError struct {
	Path   string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("conversion of %s failed: %v", e.Path, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ScriptConverter runs Command with the distribution path as its last
// argument. The script writes path+ConvertedSuffix.
type ScriptConverter struct {
	Command string
	Args    []string
}

// Convert runs the script and waits for it.
func (c ScriptConverter) Convert(ctx context.Context, path string) (string, error) {
	command := c.Command
	if command == "" {
		command = DefaultConverterCommand
	}
	args := append(append([]string(nil), c.Args...), path)

	cmd := exec.CommandContext(ctx, command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", &ConversionError{Path: path, Output: strings.TrimSpace(out.String()), Err: err}
	}
	return path + ConvertedSuffix, nil
}
