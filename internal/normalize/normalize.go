// Package normalize turns raw chat text and vocabulary items into the keys
// used by the phonetic index.
//
// Normalization strips punctuation and decoration characters and all
// whitespace, folds full-width forms to their narrow equivalents, folds case
// and maps traditional characters to simplified ones through a variant table.
// The same [Normalizer] must be used for vocabulary keys and player input, or
// lookups will miss.
package normalize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

// decoration lists every non-space character removed by [Normalizer.Strip].
// Full-width forms are listed explicitly because stripping happens before
// width folding.
const decoration = "。.，,？?！!&＆～~…、／/[]＊Ｘ【】()“”「」『』♪（）－·+-"

var stripSet = func() map[rune]struct{} {
	m := make(map[rune]struct{}, utf8.RuneCountInString(decoration))
	for _, r := range decoration {
		m[r] = struct{}{}
	}
	return m
}()

// Option configures a [Normalizer].
type Option func(*Normalizer)

// WithVariants sets the traditional → simplified character table.
func WithVariants(v map[rune]rune) Option {
	return func(n *Normalizer) {
		n.variants = v
	}
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	variants map[rune]rune
}

// New returns a Normalizer. Without [WithVariants] no character mapping is
// applied.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize returns the lookup key for s.
func (n *Normalizer) Normalize(s string) string {
	return n.Simplify(Fold(Strip(s)))
}

// Strip removes whitespace and decoration characters.
func Strip(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if _, ok := stripSet[r]; ok {
			return -1
		}
		return r
	}, s)
}

// Fold narrows full-width forms and folds case.
func Fold(s string) string {
	// A Caser carries state and must not be shared between goroutines.
	return cases.Fold().String(width.Fold.String(s))
}

// Simplify maps every character that has a simplified variant.
func (n *Normalizer) Simplify(s string) string {
	if len(n.variants) == 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if v, ok := n.variants[r]; ok {
			return v
		}
		return r
	}, s)
}

// HasWordBoundary reports whether s starts or ends with an ASCII letter,
// digit or underscore. Vocabulary items like that are not playable since
// their boundary has no tone.
func HasWordBoundary(s string) bool {
	if s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return isASCIIWord(first) || isASCIIWord(last)
}

// StartsWithASCIIWord reports whether the first character of s is an ASCII
// letter, digit or underscore.
func StartsWithASCIIWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return s != "" && isASCIIWord(r)
}

// EndsWithASCIIWord reports whether the last character of s is an ASCII
// letter, digit or underscore.
func EndsWithASCIIWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return s != "" && isASCIIWord(r)
}

func isASCIIWord(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// LoadVariants reads a YAML mapping of traditional → simplified characters.
func LoadVariants(path string) (map[rune]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: open variants: %w", err)
	}
	defer f.Close()
	return DecodeVariants(f)
}

// DecodeVariants decodes a YAML mapping of traditional → simplified
// characters. Keys and values must be single characters.
func DecodeVariants(r io.Reader) (map[rune]rune, error) {
	var raw map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("normalize: decode variants: %w", err)
	}
	out := make(map[rune]rune, len(raw))
	for k, v := range raw {
		if utf8.RuneCountInString(k) != 1 || utf8.RuneCountInString(v) != 1 {
			return nil, fmt.Errorf("normalize: decode variants: %q → %q: both sides must be single characters", k, v)
		}
		kr, _ := utf8.DecodeRuneInString(k)
		vr, _ := utf8.DecodeRuneInString(v)
		out[kr] = vr
	}
	return out, nil
}
