// Package lexicon holds the playable vocabulary and its tone index.
//
// Every word is registered under the tone codes of its first and last
// character, in two flavours:
//
//   - loose: under every tone the boundary character can be read as, so any
//     shared reading links two words.
//   - strict: under exactly one tone, taken from the curated override tables
//     or from the character's only reading. Boundaries that are ambiguous and
//     uncurated are not strictly indexed; they are recorded in a diagnostic
//     list instead (see [Index.Unknown]).
//
// Build the index completely before sharing it. After that all read methods
// are safe for concurrent use.
package lexicon

import (
	"unicode/utf8"
)

// Resolver maps a character to its de-duplicated tone codes. The result must
// never be empty. [*phonetic.Table] implements it.
type Resolver interface {
	Resolve(c rune) []string
}

// Boundary selects the first or last character of a word.
type Boundary int

const (
	// Start is a word's first character.
	Start Boundary = iota
	// End is a word's last character.
	End
)

// String returns "start" or "end".
func (b Boundary) String() string {
	if b == End {
		return "end"
	}
	return "start"
}

// Entry is the display metadata of one vocabulary word.
type Entry struct {
	// Category is the library the word came from, e.g. "角色 / 东方红魔乡".
	Category string

	// Group is the coarse classification configured for that library, e.g.
	// "character". It may be empty.
	Group string

	// Display is the text shown to players.
	Display string
}

// Unknown is a word whose boundary character is ambiguous and has no curated
// override, together with all candidate tones.
type Unknown struct {
	Word  string   `yaml:"word"`
	Tones []string `yaml:"tones"`
}

// Option configures an [Index].
type Option func(*Index)

// WithOverrides sets the curated strict tones. leading maps a whole word to
// the tone of its first character, trailing to the tone of its last.
func WithOverrides(leading, trailing map[string]string) Option {
	return func(ix *Index) {
		if leading != nil {
			ix.leading = leading
		}
		if trailing != nil {
			ix.trailing = trailing
		}
	}
}

// bucket is a word set that remembers insertion order so iteration stays
// deterministic under a seeded random source.
type bucket []string

// Index is the vocabulary plus its four tone tables.
type Index struct {
	resolver Resolver
	leading  map[string]string
	trailing map[string]string

	words map[string]Entry
	order []string

	// loose[b] and strict[b] map tone → words for boundary b.
	loose  [2]map[string]bucket
	strict [2]map[string]bucket

	unknown [2][]Unknown
}

// New returns an empty index resolving tones through r.
func New(r Resolver, opts ...Option) *Index {
	ix := &Index{
		resolver: r,
		leading:  map[string]string{},
		trailing: map[string]string{},
		words:    make(map[string]Entry),
	}
	for b := range 2 {
		ix.loose[b] = make(map[string]bucket)
		ix.strict[b] = make(map[string]bucket)
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// IndexWord adds key to the vocabulary. Keys of one character or less are
// ignored. Adding a key a second time replaces its [Entry] but leaves the tone
// tables untouched. It reports whether the key was indexed for the first time.
func (ix *Index) IndexWord(key string, e Entry) bool {
	if utf8.RuneCountInString(key) <= 1 {
		return false
	}
	_, seen := ix.words[key]
	ix.words[key] = e
	if seen {
		return false
	}
	ix.order = append(ix.order, key)

	first, _ := utf8.DecodeRuneInString(key)
	last, _ := utf8.DecodeLastRuneInString(key)
	ix.register(Start, key, ix.resolver.Resolve(first), ix.leading)
	ix.register(End, key, ix.resolver.Resolve(last), ix.trailing)
	return true
}

func (ix *Index) register(b Boundary, key string, tones []string, overrides map[string]string) {
	override, curated := overrides[key]
	switch {
	case curated:
		ix.strict[b][override] = append(ix.strict[b][override], key)
	case len(tones) > 1:
		ix.unknown[b] = append(ix.unknown[b], Unknown{Word: key, Tones: tones})
	default:
		ix.strict[b][tones[0]] = append(ix.strict[b][tones[0]], key)
	}
	for _, t := range tones {
		ix.loose[b][t] = append(ix.loose[b][t], key)
	}
}

// Lookup returns the words registered under tone. reverse selects the
// end-character tables; strict selects the single-tone tables. Unknown tones
// yield nil. The returned slice is shared and must not be modified.
func (ix *Index) Lookup(tone string, reverse, strict bool) []string {
	b := Start
	if reverse {
		b = End
	}
	if strict {
		return ix.strict[b][tone]
	}
	return ix.loose[b][tone]
}

// NextTones returns the tones a follow-up word must match. In forward mode
// that is the reading of word's last character, in reverse mode of its
// first. strict yields a single tone: the curated override if present, else
// the first resolved reading.
func (ix *Index) NextTones(word string, reverse, strict bool) []string {
	if word == "" {
		return nil
	}
	var c rune
	var overrides map[string]string
	if reverse {
		c, _ = utf8.DecodeRuneInString(word)
		overrides = ix.leading
	} else {
		c, _ = utf8.DecodeLastRuneInString(word)
		overrides = ix.trailing
	}
	if !strict {
		return ix.resolver.Resolve(c)
	}
	if t, ok := overrides[word]; ok {
		return []string{t}
	}
	return ix.resolver.Resolve(c)[:1]
}

// Tones resolves a single character.
func (ix *Index) Tones(c rune) []string {
	return ix.resolver.Resolve(c)
}

// Entry returns the metadata of key.
func (ix *Index) Entry(key string) (Entry, bool) {
	e, ok := ix.words[key]
	return e, ok
}

// Contains reports whether key is in the vocabulary.
func (ix *Index) Contains(key string) bool {
	_, ok := ix.words[key]
	return ok
}

// Words returns every key in insertion order. The slice is shared and must
// not be modified.
func (ix *Index) Words() []string {
	return ix.order
}

// Len returns the vocabulary size.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Unknown returns the ambiguous, uncurated words of boundary b in insertion
// order.
func (ix *Index) Unknown(b Boundary) []Unknown {
	return ix.unknown[b]
}
