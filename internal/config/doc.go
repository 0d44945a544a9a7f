// Package config resolves the &sddsbeam keyword map into an immutable
// Options value.
//
// Parsing consumes every recognized keyword. Anything left over is a fatal
// ConfigurationError, so a misspelled keyword never silently falls back to
// its default.
package config
