package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/phasebeam/internal/setup"
)

// marshalJSON encodes v as JSON TEXT with HTML escaping disabled.
// Map keys come out sorted, so equal values give equal text.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalSetup(s setup.Setup) (string, error) {
	data, err := marshalJSON(s)
	if err != nil {
		return "", fmt.Errorf("marshal setup: %w", err)
	}
	return data, nil
}

func marshalKeywords(kw map[string]string) (string, error) {
	if kw == nil {
		kw = map[string]string{}
	}
	data, err := marshalJSON(kw)
	if err != nil {
		return "", fmt.Errorf("marshal keywords: %w", err)
	}
	return data, nil
}

func unmarshalSetup(data string) (setup.Setup, error) {
	var s setup.Setup
	if data == "" || data == "{}" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return setup.Setup{}, fmt.Errorf("unmarshal setup: %w", err)
	}
	return s, nil
}

func unmarshalKeywords(data string) (map[string]string, error) {
	kw := map[string]string{}
	if data == "" || data == "{}" {
		return kw, nil
	}
	if err := json.Unmarshal([]byte(data), &kw); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	return kw, nil
}
