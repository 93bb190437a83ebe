package chain

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Arcade restriction rule names, used as metric labels.
const (
	ruleCategory    = "category"
	ruleStrict      = "strict"
	rulePolyphone   = "polyphone"
	ruleToneOverlap = "tone_overlap"
	ruleLengthMin   = "length_min"
	ruleLengthMax   = "length_max"
)

type restriction struct {
	rule   string
	phrase string
	words  []string
}

// restrict narrows s.next in arcade mode. A rule qualifies when it keeps
// more words than the threshold but fewer than all of them; one qualifying
// rule is picked at random.
func (e *Engine) restrict(s *session, st *Settings) {
	size := len(s.next)
	threshold := ArcadeThreshold(size, s.index)
	if size == threshold {
		return
	}
	fits := func(n int) bool { return n > threshold && n < size }

	var rules []restriction

	// Tightest configured category, earlier categories win ties.
	var best restriction
	for _, c := range st.Categories {
		list := e.filter(s.next, func(w string) bool {
			entry, _ := e.vocab.Entry(w)
			return entry.Group == c.Group
		})
		limit := size
		if best.words != nil {
			limit = len(best.words)
		}
		if len(list) > threshold && len(list) < limit {
			best = restriction{rule: ruleCategory, phrase: "属于" + c.Label + "且", words: list}
		}
	}
	if best.words != nil {
		rules = append(rules, best)
	}

	if !s.mode.Strict {
		var list []string
		seen := make(map[string]struct{})
		for _, t := range s.tones {
			for _, w := range e.vocab.Lookup(t, s.mode.Reverse, true) {
				if _, dup := seen[w]; dup || !s.allowed(w) {
					continue
				}
				seen[w] = struct{}{}
				list = append(list, w)
			}
		}
		if fits(len(list)) {
			rules = append(rules, restriction{rule: ruleStrict, phrase: "严格模式下", words: list})
		}
	}

	// Polyphones on the side that has to match the current word.
	if len(s.tones) == 1 {
		list := e.filter(s.next, func(w string) bool {
			return len(e.vocab.NextTones(w, !s.mode.Reverse, false)) > 1
		})
		if fits(len(list)) {
			side := "开头"
			if s.mode.Reverse {
				side = "结尾"
			}
			rules = append(rules, restriction{rule: rulePolyphone, phrase: "以多音字" + side + "且", words: list})
		}
	}

	// Words that lead back into one of the current tones.
	list := e.filter(s.next, func(w string) bool {
		for _, t := range e.vocab.NextTones(w, s.mode.Reverse, s.mode.Strict) {
			if slices.Contains(s.tones, t) {
				return true
			}
		}
		return false
	})
	if fits(len(list)) {
		rules = append(rules, restriction{rule: ruleToneOverlap, phrase: "首尾同音且", words: list})
	}

	rules = append(rules, lengthRules(s.next, threshold)...)

	if len(rules) == 0 {
		return
	}
	r := rules[e.intN(len(rules))]
	s.setNext(r.words)
	s.restriction = r.phrase
	s.rule = r.rule
}

// lengthRules returns the tightest "at least L" and "at most L" subsets that
// still exceed threshold.
func lengthRules(words []string, threshold int) []restriction {
	lengths := make([]int, len(words))
	shortest, longest := -1, -1
	for i, w := range words {
		n := utf8.RuneCountInString(w)
		lengths[i] = n
		if shortest < 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
	}
	pick := func(keep func(n int) bool) []string {
		var out []string
		for i, w := range words {
			if keep(lengths[i]) {
				out = append(out, w)
			}
		}
		return out
	}

	var rules []restriction

	var atLeast []string
	l := shortest
	for {
		list := pick(func(n int) bool { return n > l })
		if len(list) <= threshold {
			break
		}
		atLeast = list
		l++
	}
	if l > shortest {
		rules = append(rules, restriction{rule: ruleLengthMin, phrase: fmt.Sprintf("不少于 %d 个字的", l), words: atLeast})
	}

	var atMost []string
	l = longest
	for {
		list := pick(func(n int) bool { return n < l })
		if len(list) <= threshold {
			break
		}
		atMost = list
		l--
	}
	if l < longest {
		rules = append(rules, restriction{rule: ruleLengthMax, phrase: fmt.Sprintf("不多于 %d 个字的", l), words: atMost})
	}
	return rules
}

func (e *Engine) filter(words []string, keep func(string) bool) []string {
	var out []string
	for _, w := range words {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
