package phonetic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// LoadFiles reads the romanization table at readingsPath and the marker
// table at markersPath and builds a [Table].
func LoadFiles(readingsPath, markersPath string) (*Table, error) {
	rf, err := os.Open(readingsPath)
	if err != nil {
		return nil, fmt.Errorf("phonetic: open readings: %w", err)
	}
	defer rf.Close()

	mf, err := os.Open(markersPath)
	if err != nil {
		return nil, fmt.Errorf("phonetic: open markers: %w", err)
	}
	defer mf.Close()

	return Load(rf, mf)
}

// Load decodes both tables from YAML and builds a [Table].
func Load(readings, markers io.Reader) (*Table, error) {
	rows, err := DecodeReadings(readings)
	if err != nil {
		return nil, err
	}
	ms, err := DecodeMarkers(markers)
	if err != nil {
		return nil, err
	}
	return NewTable(rows, ms), nil
}

// DecodeReadings decodes a YAML mapping of pronunciation → characters. The
// document order of the mapping is kept, which plain map decoding would lose.
func DecodeReadings(r io.Reader) ([]Reading, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("phonetic: decode readings: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("phonetic: decode readings: line %d: expected a mapping", root.Line)
	}

	rows := make([]Reading, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("phonetic: decode readings: line %d: %q must map to a string", v.Line, k.Value)
		}
		rows = append(rows, Reading{Pronunciation: k.Value, Chars: v.Value})
	}
	return rows, nil
}

// DecodeMarkers decodes a YAML mapping of marker letter → [base, pitch].
func DecodeMarkers(r io.Reader) (map[rune]Marker, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("phonetic: decode markers: %w", err)
	}

	out := make(map[rune]Marker, len(raw))
	for k, v := range raw {
		if utf8.RuneCountInString(k) != 1 {
			return nil, fmt.Errorf("phonetic: decode markers: key %q must be a single letter", k)
		}
		if len(v) == 0 || len(v) > 2 {
			return nil, fmt.Errorf("phonetic: decode markers: %q must map to [base] or [base, pitch]", k)
		}
		r, _ := utf8.DecodeRuneInString(k)
		m := Marker{Base: v[0]}
		if len(v) == 2 {
			m.Pitch = v[1]
		}
		out[r] = m
	}
	return out, nil
}
