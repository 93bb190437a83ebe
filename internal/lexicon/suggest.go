package lexicon

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.90
	defaultFuzzyThreshold    = 0.85
)

// SuggestOption configures a [Suggester].
type SuggestOption func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score between the
// romanized forms of the input and a candidate sharing its leading tone.
// Default: 0.90.
func WithPhoneticThreshold(threshold float64) SuggestOption {
	return func(s *Suggester) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score on the raw strings
// used when no phonetic candidate qualifies. Default: 0.85.
func WithFuzzyThreshold(threshold float64) SuggestOption {
	return func(s *Suggester) {
		s.fuzzyThreshold = threshold
	}
}

// Suggester finds the vocabulary word a player most likely meant when the
// input is not in the vocabulary. It is read-only and safe for concurrent use.
//
// Matching runs in two stages:
//
//  1. Phonetic candidates: words whose first character shares a tone with the
//     input's first character are ranked by Jaro-Winkler similarity of their
//     romanized forms. This catches homophone typos, which are the usual
//     input-method mistake.
//  2. Fuzzy fallback: with no phonetic candidate above threshold, every word
//     is ranked by Jaro-Winkler similarity of the raw strings.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewSuggester returns a Suggester configured with opts.
func NewSuggester(opts ...SuggestOption) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest returns the best match for word in ix. When matched is false,
// suggestion is empty and score is 0.
func (s *Suggester) Suggest(ix *Index, word string) (suggestion string, score float64, matched bool) {
	if utf8.RuneCountInString(word) <= 1 || ix.Len() == 0 {
		return "", 0, false
	}

	first, _ := utf8.DecodeRuneInString(word)
	input := romanize(ix, word)
	seen := make(map[string]struct{})
	for _, tone := range ix.Tones(first) {
		for _, cand := range ix.Lookup(tone, false, false) {
			if _, ok := seen[cand]; ok {
				continue
			}
			seen[cand] = struct{}{}
			sc := matchr.JaroWinkler(input, romanize(ix, cand), false)
			if sc >= s.phoneticThreshold && sc > score {
				suggestion, score = cand, sc
			}
		}
	}
	if suggestion != "" {
		return suggestion, score, true
	}

	for _, cand := range ix.Words() {
		sc := matchr.JaroWinkler(word, cand, false)
		if sc >= s.fuzzyThreshold && sc > score {
			suggestion, score = cand, sc
		}
	}
	if suggestion != "" {
		return suggestion, score, true
	}
	return "", 0, false
}

// romanize joins the first reading of every character of w.
func romanize(ix *Index, w string) string {
	parts := make([]string, 0, utf8.RuneCountInString(w))
	for _, c := range w {
		parts = append(parts, ix.Tones(c)[0])
	}
	return strings.Join(parts, " ")
}
