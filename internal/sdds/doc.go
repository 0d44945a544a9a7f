// Package sdds wraps the external distribution tooling: the conversion
// subprocess that turns an SDDS distribution into a column file, and the
// reader and writer for that column file.
//
// Column file layout (little endian):
//
//	header   magic "PBCF", version uint32, columns uint32, reserved uint32
//	columns  per column: name length uint32, name bytes, length uint64
//	data     per column, in header order: length float64 values
//
// Readers fetch any contiguous range of a column without loading the rest,
// which lets each rank read only its own chunk.
package sdds
