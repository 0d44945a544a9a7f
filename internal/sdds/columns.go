package sdds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Dataset names written by the conversion script.
const (
	ColumnT  = "t"
	ColumnP  = "p"
	ColumnX  = "x"
	ColumnXP = "xp"
	ColumnY  = "y"
	ColumnYP = "yp"
)

var byteOrder = binary.LittleEndian

const (
	columnMagic   = "PBCF"
	columnVersion = 1
)

type fileHeader struct {
	Magic    [4]byte
	Version  uint32
	Columns  uint32
	Reserved uint32
}

// Reader reads contiguous ranges of named float64 columns.
type Reader interface {
	// Len returns the number of values in a column.
	Len(name string) (int, error)
	// ReadFloat64s fills dst with values starting at offset.
	ReadFloat64s(name string, offset int, dst []float64) error
	Close() error
}

// ColumnFile is a Reader over a column file on disk.
type ColumnFile struct {
	f       *os.File
	lengths map[string]int
	offsets map[string]int64
}

// OpenColumnFile opens a column file and reads its header.
func OpenColumnFile(path string) (*ColumnFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open column file: %w", err)
	}
	cf, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open column file %s: %w", path, err)
	}
	return cf, nil
}

func readHeader(f *os.File) (*ColumnFile, error) {
	hd := fileHeader{}
	if err := binary.Read(f, byteOrder, &hd); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hd.Magic[:]) != columnMagic {
		return nil, errors.New("not a column file")
	}
	if hd.Version != columnVersion {
		return nil, fmt.Errorf("unsupported column file version %d", hd.Version)
	}

	pos := int64(binary.Size(hd))
	names := make([]string, hd.Columns)
	lengths := make([]uint64, hd.Columns)
	for i := range names {
		var n uint32
		if err := binary.Read(f, byteOrder, &n); err != nil {
			return nil, fmt.Errorf("read column %d name length: %w", i, err)
		}
		name := make([]byte, n)
		if _, err := io.ReadFull(f, name); err != nil {
			return nil, fmt.Errorf("read column %d name: %w", i, err)
		}
		if err := binary.Read(f, byteOrder, &lengths[i]); err != nil {
			return nil, fmt.Errorf("read column %d length: %w", i, err)
		}
		names[i] = string(name)
		pos += 4 + int64(n) + 8
	}

	cf := &ColumnFile{f: f, lengths: map[string]int{}, offsets: map[string]int64{}}
	for i, name := range names {
		cf.lengths[name] = int(lengths[i])
		cf.offsets[name] = pos
		pos += 8 * int64(lengths[i])
	}
	return cf, nil
}

// Columns returns the column names, sorted.
func (cf *ColumnFile) Columns() []string {
	out := make([]string, 0, len(cf.lengths))
	for name := range cf.lengths {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len implements Reader.
func (cf *ColumnFile) Len(name string) (int, error) {
	n, ok := cf.lengths[name]
	if !ok {
		return 0, fmt.Errorf("column %q not found", name)
	}
	return n, nil
}

// ReadFloat64s implements Reader.
func (cf *ColumnFile) ReadFloat64s(name string, offset int, dst []float64) error {
	n, ok := cf.lengths[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if offset < 0 || offset+len(dst) > n {
		return fmt.Errorf("column %q: range [%d, %d) outside [0, %d)", name, offset, offset+len(dst), n)
	}
	if len(dst) == 0 {
		return nil
	}
	start := cf.offsets[name] + 8*int64(offset)
	sec := io.NewSectionReader(cf.f, start, 8*int64(len(dst)))
	if err := binary.Read(sec, byteOrder, dst); err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}
	return nil
}

// Close implements Reader.
func (cf *ColumnFile) Close() error {
	return cf.f.Close()
}

// Column is a named series for WriteColumnFile.
type Column struct {
	Name   string
	Values []float64
}

// WriteColumnFile writes columns to path, replacing any existing file.
func WriteColumnFile(path string, cols []Column) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create column file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	hd := fileHeader{Version: columnVersion, Columns: uint32(len(cols))}
	copy(hd.Magic[:], columnMagic)
	if err := binary.Write(f, byteOrder, hd); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range cols {
		if err := binary.Write(f, byteOrder, uint32(len(c.Name))); err != nil {
			return err
		}
		if _, err := f.Write([]byte(c.Name)); err != nil {
			return err
		}
		if err := binary.Write(f, byteOrder, uint64(len(c.Values))); err != nil {
			return err
		}
	}
	for _, c := range cols {
		if err := binary.Write(f, byteOrder, c.Values); err != nil {
			return fmt.Errorf("write column %q: %w", c.Name, err)
		}
	}
	return nil
}
