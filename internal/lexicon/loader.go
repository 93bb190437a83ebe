package lexicon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/jielong/internal/normalize"
)

// Kind selects how the items of a [Library] are turned into words.
type Kind string

const (
	// KindPlain keeps each item as one word.
	KindPlain Kind = "plain"

	// KindSpellCard extracts the quoted card name from items such as
	// `恋符「マスタースパーク」`, plus a variant prefixed with the sign name.
	KindSpellCard Kind = "spellcard"

	// KindMusic drops parenthesised notes and splits titles on "～" while
	// also keeping the whole title.
	KindMusic Kind = "music"
)

// Library is one named group of vocabulary items.
type Library struct {
	Name  string   `yaml:"name"`
	Group string   `yaml:"group"`
	Kind  Kind     `yaml:"kind"`
	Items []string `yaml:"items"`
}

// Normalizer produces lookup keys. [*normalize.Normalizer] implements it.
type Normalizer interface {
	Normalize(s string) string
	Simplify(s string) string
}

var (
	spellPattern = regexp.MustCompile(`(.*)([「＊])(.+)([」＊])`)
	musicNote    = regexp.MustCompile(`\(.+\)`)
)

// LoadLibraryFile decodes the libraries in a YAML file.
func LoadLibraryFile(path string) ([]Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open %s: %w", path, err)
	}
	defer f.Close()

	libs, err := DecodeLibraries(f)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %s: %w", path, err)
	}
	return libs, nil
}

// DecodeLibraries decodes a YAML sequence of libraries.
func DecodeLibraries(r io.Reader) ([]Library, error) {
	var libs []Library
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&libs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode libraries: %w", err)
	}
	for i, lib := range libs {
		switch lib.Kind {
		case "":
			libs[i].Kind = KindPlain
		case KindPlain, KindSpellCard, KindMusic:
		default:
			return nil, fmt.Errorf("decode libraries: %q: unknown kind %q", lib.Name, lib.Kind)
		}
	}
	return libs, nil
}

// AddLibrary indexes every playable word of lib and returns how many new
// keys were added.
func (ix *Index) AddLibrary(lib Library, n Normalizer) int {
	added := 0
	add := func(key, display string) {
		if ix.IndexWord(key, Entry{Category: lib.Name, Group: lib.Group, Display: display}) {
			added++
		}
	}

	for _, item := range lib.Items {
		item = n.Simplify(item)
		switch lib.Kind {
		case KindSpellCard:
			addSpellCard(item, n, add)
		case KindMusic:
			for _, w := range musicWords(item) {
				key := n.Normalize(w)
				if !normalize.HasWordBoundary(key) {
					add(key, w)
				}
			}
		default:
			key := n.Normalize(item)
			if !normalize.HasWordBoundary(key) {
				add(key, item)
			}
		}
	}
	return added
}

func addSpellCard(item string, n Normalizer, add func(key, display string)) {
	m := spellPattern.FindStringSubmatch(item)
	if m == nil {
		slog.Debug("lexicon: spell card without quoted name", "item", item)
		return
	}
	sign, open, name, closing := m[1], m[2], m[3], m[4]
	for _, c := range spellCardNames(name, n) {
		if !c.asciiPrefixed {
			add(c.key, open+c.text+closing)
		}
		if sign != "" && !normalize.StartsWithASCIIWord(sign) {
			add(n.Normalize(sign)+c.key, sign+open+c.text+closing)
		}
	}
}

type cardName struct {
	text          string
	key           string
	asciiPrefixed bool
}

// spellCardNames yields the first space-separated segment of source (when
// there are several) and the whole of source, each only if its key ends in a
// non-ASCII character.
func spellCardNames(source string, n Normalizer) []cardName {
	words := strings.Split(source, " ")
	whole := n.Normalize(source)
	asciiPrefixed := whole == "" || normalize.StartsWithASCIIWord(whole)

	var out []cardName
	if len(words) > 1 {
		if first := n.Normalize(words[0]); first != "" && !normalize.EndsWithASCIIWord(first) {
			out = append(out, cardName{text: words[0], key: first, asciiPrefixed: asciiPrefixed})
		}
	}
	if whole != "" && !normalize.EndsWithASCIIWord(whole) {
		out = append(out, cardName{text: source, key: whole, asciiPrefixed: asciiPrefixed})
	}
	return out
}

func musicWords(title string) []string {
	if loc := musicNote.FindStringIndex(title); loc != nil {
		title = title[:loc[0]] + title[loc[1]:]
	}
	words := strings.Split(title, "～")
	if len(words) > 1 {
		words = append(words, title)
	}
	return words
}

// LoadOverrides reads a YAML mapping of word → tone.
func LoadOverrides(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open overrides: %w", err)
	}
	defer f.Close()
	return DecodeOverrides(f)
}

// DecodeOverrides decodes a YAML mapping of word → tone.
func DecodeOverrides(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	if err := yaml.NewDecoder(r).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("lexicon: decode overrides: %w", err)
	}
	return out, nil
}
