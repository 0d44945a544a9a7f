package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/phasebeam/internal/sdds"
)

// MemoryReader serves columns from memory. It can be shared by every rank
// of a World; reads never mutate it.
type MemoryReader struct {
	Columns map[string][]float64
	// FailOn makes reads of this column fail.
	FailOn string
}

// Open returns r itself, matching the importer's Open hook.
func (r *MemoryReader) Open(string) (sdds.Reader, error) { return r, nil }

// Len implements sdds.Reader.
func (r *MemoryReader) Len(name string) (int, error) {
	col, ok := r.Columns[name]
	if !ok {
		return 0, fmt.Errorf("no column %q", name)
	}
	return len(col), nil
}

// ReadFloat64s implements sdds.Reader.
func (r *MemoryReader) ReadFloat64s(name string, offset int, dst []float64) error {
	if name == r.FailOn {
		return fmt.Errorf("read %s: injected failure", name)
	}
	col, ok := r.Columns[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	if offset < 0 || offset+len(dst) > len(col) {
		return fmt.Errorf("read %s: range [%d, %d) out of bounds", name, offset, offset+len(dst))
	}
	copy(dst, col[offset:])
	return nil
}

// Close implements sdds.Reader.
func (r *MemoryReader) Close() error { return nil }

// ErrConversion is the failure reported by a failing StubConverter.
var ErrConversion = errors.New("stub conversion failed")

// StubConverter records conversion calls without running anything.
//
// Thread-safety: safe for concurrent use.
type StubConverter struct {
	// Fail makes every call return ErrConversion.
	Fail bool

	calls atomic.Int64
	mu    sync.Mutex
	paths []string
}

// Convert implements sdds.Converter.
func (c *StubConverter) Convert(_ context.Context, path string) (string, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	if c.Fail {
		return "", &sdds.ConversionError{Path: path, Err: ErrConversion}
	}
	return path + sdds.ConvertedSuffix, nil
}

// Calls returns how many conversions were requested.
func (c *StubConverter) Calls() int {
	return int(c.calls.Load())
}

// Paths returns the requested paths in call order.
func (c *StubConverter) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}
