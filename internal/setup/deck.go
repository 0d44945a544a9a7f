package setup

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Deck is a validated run deck.
type Deck struct {
	Setup   Setup
	Time    TimeWindow
	Lattice Lattice
	// Beam is the raw &sddsbeam keyword map, values rendered as strings.
	Beam map[string]string
}

// DeckError reports a deck that failed to parse or validate.
type DeckError struct {
	Path    string
	Message string
}

func (e *DeckError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// LoadDeck reads and validates a deck file.
func LoadDeck(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DeckError{Path: path, Message: fmt.Sprintf("read deck: %v", err)}
	}
	d, err := ParseDeck(data)
	if err != nil {
		if de, ok := err.(*DeckError); ok {
			de.Path = path
		}
		return nil, err
	}
	return d, nil
}

// ParseDeck validates YAML deck content against the embedded schema and
// fills schema defaults.
func ParseDeck(data []byte) (*Deck, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &DeckError{Message: fmt.Sprintf("parse YAML: %v", err)}
	}
	if raw == nil {
		return nil, &DeckError{Message: "deck is empty"}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Deck"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile deck schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &DeckError{Message: cueerrors.Details(err, nil)}
	}

	d := &Deck{}
	if err := v.LookupPath(cue.ParsePath("setup")).Decode(&d.Setup); err != nil {
		return nil, &DeckError{Message: fmt.Sprintf("decode setup: %v", err)}
	}
	if err := v.LookupPath(cue.ParsePath("time")).Decode(&d.Time); err != nil {
		return nil, &DeckError{Message: fmt.Sprintf("decode time: %v", err)}
	}
	if lat := v.LookupPath(cue.ParsePath("lattice")); lat.Exists() {
		if err := lat.Decode(&d.Lattice); err != nil {
			return nil, &DeckError{Message: fmt.Sprintf("decode lattice: %v", err)}
		}
	}

	beamSection, _ := raw["sddsbeam"].(map[string]any)
	d.Beam = renderKeywords(beamSection)

	return d, nil
}

// Keys returns the keyword names of the &sddsbeam section, sorted.
func (d *Deck) Keys() []string {
	keys := make([]string, 0, len(d.Beam))
	for k := range d.Beam {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Options returns a fresh copy of the keyword map.
func (d *Deck) Options() map[string]string {
	out := make(map[string]string, len(d.Beam))
	for k, v := range d.Beam {
		out[k] = v
	}
	return out
}

func renderKeywords(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'g', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
