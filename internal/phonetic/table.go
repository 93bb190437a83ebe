// Package phonetic resolves Chinese characters to the tone codes used for
// chain matching.
//
// A [Table] is built from two inputs:
//
//   - a romanization table mapping each pronunciation (for example "xiāng")
//     to the characters read that way, and
//   - a marker table mapping every tone-marked letter (for example "ā") to its
//     base letter and pitch number.
//
// The table is inverted to character → pronunciations. Resolving a character
// rewrites each pronunciation with the base letters, so "xiāng" becomes the
// tone code "xiang". Characters missing from the romanization table resolve to
// themselves, so lookups never fail.
//
// A Table is read-only after construction and safe for concurrent use.
package phonetic

import (
	"slices"
	"strings"
)

// Marker is the replacement for one tone-marked letter.
type Marker struct {
	// Base is the letter written in place of the marker.
	Base string

	// Pitch is the tone number appended by [Table.ResolveWithPitch].
	Pitch string
}

// Reading is one romanization table row: a pronunciation and every character
// read that way, in table order.
type Reading struct {
	Pronunciation string
	Chars         string
}

// Table maps characters to tone codes.
type Table struct {
	readings map[rune][]string
	markers  map[rune]Marker
}

// NewTable inverts readings into a character → pronunciation table. Row order
// is preserved: a character listed under several pronunciations keeps them in
// the order the rows appear.
func NewTable(readings []Reading, markers map[rune]Marker) *Table {
	t := &Table{
		readings: make(map[rune][]string),
		markers:  make(map[rune]Marker, len(markers)),
	}
	for r, m := range markers {
		t.markers[r] = m
	}
	for _, row := range readings {
		for _, c := range row.Chars {
			t.readings[c] = append(t.readings[c], row.Pronunciation)
		}
	}
	return t
}

// Resolve returns the de-duplicated tone codes of c in table order. The
// result is never empty.
func (t *Table) Resolve(c rune) []string {
	prons := t.pronunciations(c)
	out := make([]string, 0, len(prons))
	for _, p := range prons {
		code, _ := t.rewrite(p)
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// ResolveWithPitch returns one entry per pronunciation of c with the pitch
// number appended, e.g. "xiang1". Duplicates are kept.
func (t *Table) ResolveWithPitch(c rune) []string {
	prons := t.pronunciations(c)
	out := make([]string, 0, len(prons))
	for _, p := range prons {
		code, pitch := t.rewrite(p)
		out = append(out, code+pitch)
	}
	return out
}

// IsPolyphone reports whether c resolves to more than one tone code.
func (t *Table) IsPolyphone(c rune) bool {
	return len(t.Resolve(c)) > 1
}

// Len returns the number of tabulated characters.
func (t *Table) Len() int {
	return len(t.readings)
}

func (t *Table) pronunciations(c rune) []string {
	if prons, ok := t.readings[c]; ok {
		return prons
	}
	return []string{string(c)}
}

// rewrite substitutes every marker in p. When several markers occur the
// pitch of the last one wins.
func (t *Table) rewrite(p string) (code, pitch string) {
	var b strings.Builder
	b.Grow(len(p))
	for _, r := range p {
		if m, ok := t.markers[r]; ok {
			b.WriteString(m.Base)
			pitch = m.Pitch
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), pitch
}
