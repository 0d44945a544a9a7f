package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/phasebeam/internal/beam"
)

// Keyword names accepted in the &sddsbeam section.
const (
	KeyFile       = "file"
	KeyCharge     = "charge"
	KeySliceWidth = "slicewidth"
	KeyOutput     = "output"
	KeyCenter     = "center"
	KeyGamma0     = "gamma0"
	KeyX0         = "x0"
	KeyY0         = "y0"
	KeyPx0        = "px0"
	KeyPy0        = "py0"
	KeyMatch      = "match"
	KeyBetaX      = "betax"
	KeyAlphaX     = "alphax"
	KeyBetaY      = "betay"
	KeyAlphaY     = "alphay"
	KeyMatchStart = "match_start"
	KeyMatchEnd   = "match_end"
	KeyAlign      = "align"
	KeyAlignStart = "align_start"
	KeyAlignEnd   = "align_end"
)

// Defaults are values supplied by the simulation setup rather than by the
// keyword section.
type Defaults struct {
	// ReferenceEnergy is the default gamma0.
	ReferenceEnergy float64
	// Matched holds lattice-matched optics, if the lattice computed them.
	Matched *beam.Twiss
}

// Options is the resolved keyword section.
type Options struct {
	File       string
	Charge     float64
	SliceWidth float64
	Output     bool

	Center bool
	Target beam.Centroid

	Match      bool
	Twiss      beam.Twiss
	MatchStart float64
	MatchEnd   float64

	// Align, AlignStart and AlignEnd are accepted for compatibility with
	// existing decks. Nothing consumes them.
	Align      int
	AlignStart float64
	AlignEnd   float64
}

// Parse resolves opts against the defaults. opts is not modified.
//
// Every rank parses its own copy and therefore reaches the same verdict
// without communicating.
func Parse(opts map[string]string, d Defaults) (*Options, error) {
	twiss := beam.DefaultTwiss
	if d.Matched != nil {
		twiss = *d.Matched
	}

	o := &Options{
		SliceWidth: 0.01,
		Target:     beam.Centroid{Gamma: d.ReferenceEnergy},
		Twiss:      twiss,
		MatchStart: 0,
		MatchEnd:   1,
		AlignStart: 0,
		AlignEnd:   1,
	}

	p := newParser(opts)

	p.str(KeyFile, &o.File)
	p.float(KeyCharge, &o.Charge)
	p.float(KeySliceWidth, &o.SliceWidth)
	p.float(KeyMatchStart, &o.MatchStart)
	p.float(KeyMatchEnd, &o.MatchEnd)
	p.float(KeyAlignStart, &o.AlignStart)
	p.float(KeyAlignEnd, &o.AlignEnd)
	p.float(KeyBetaX, &o.Twiss.BetaX)
	p.float(KeyBetaY, &o.Twiss.BetaY)
	p.float(KeyAlphaX, &o.Twiss.AlphaX)
	p.float(KeyAlphaY, &o.Twiss.AlphaY)
	p.float(KeyX0, &o.Target.X)
	p.float(KeyY0, &o.Target.Y)
	p.float(KeyPx0, &o.Target.Px)
	p.float(KeyPy0, &o.Target.Py)
	p.float(KeyGamma0, &o.Target.Gamma)
	p.int(KeyAlign, &o.Align)
	p.bool(KeyMatch, &o.Match)
	p.bool(KeyCenter, &o.Center)
	p.bool(KeyOutput, &o.Output)

	if o.File == "" {
		p.err.Missing = append(p.err.Missing, KeyFile)
	}
	for k := range p.rest {
		p.err.Unknown = append(p.err.Unknown, k)
	}
	sort.Strings(p.err.Unknown)

	if !p.err.empty() {
		return nil, p.err
	}
	return o, nil
}

// NormalizeKey canonicalizes a keyword as written in a deck.
func NormalizeKey(k string) string {
	return strings.TrimSpace(norm.NFC.String(k))
}

type parser struct {
	rest map[string]string
	err  *ConfigurationError
}

func newParser(opts map[string]string) *parser {
	rest := make(map[string]string, len(opts))
	for k, v := range opts {
		rest[NormalizeKey(k)] = strings.TrimSpace(v)
	}
	return &parser{rest: rest, err: &ConfigurationError{}}
}

// take removes key from the remaining set.
func (p *parser) take(key string) (string, bool) {
	v, ok := p.rest[key]
	if ok {
		delete(p.rest, key)
	}
	return v, ok
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.take(key); ok {
		*dst = v
	}
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.take(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err.invalid(key, v, "a number")
		return
	}
	*dst = f
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.take(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err.invalid(key, v, "an integer")
		return
	}
	*dst = n
}

func (p *parser) bool(key string, dst *bool) {
	v, ok := p.take(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err.invalid(key, v, "a boolean")
		return
	}
	*dst = b
}

// ConfigurationError reports every problem found in a keyword section.
type ConfigurationError struct {
	Unknown []string
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) invalid(key, value, want string) {
	e.Invalid = append(e.Invalid, fmt.Sprintf("%s=%q is not %s", key, value, want))
}

func (e *ConfigurationError) empty() bool {
	return len(e.Unknown) == 0 && len(e.Missing) == 0 && len(e.Invalid) == 0
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown elements in &sddsbeam: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required elements: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Invalid...)
	return strings.Join(parts, "; ")
}
