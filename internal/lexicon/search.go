package lexicon

import (
	"strings"
)

// Includes returns every key containing sub, in insertion order.
func (ix *Index) Includes(sub string) []string {
	var out []string
	for _, w := range ix.order {
		if strings.Contains(w, sub) {
			out = append(out, w)
		}
	}
	return out
}

// Search returns the words starting with any of startTones and ending with
// any of endTones. An empty tone list does not constrain its boundary; when
// both are empty the result is empty.
func (ix *Index) Search(startTones, endTones []string, strict bool) []string {
	if len(startTones) == 0 && len(endTones) == 0 {
		return nil
	}
	starts := ix.union(startTones, false, strict)
	ends := ix.union(endTones, true, strict)

	switch {
	case len(startTones) == 0:
		return ends.list
	case len(endTones) == 0:
		return starts.list
	}
	var out []string
	for _, w := range starts.list {
		if _, ok := ends.set[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

type orderedSet struct {
	set  map[string]struct{}
	list []string
}

func (ix *Index) union(tones []string, reverse, strict bool) orderedSet {
	s := orderedSet{set: make(map[string]struct{})}
	for _, t := range tones {
		for _, w := range ix.Lookup(t, reverse, strict) {
			if _, ok := s.set[w]; ok {
				continue
			}
			s.set[w] = struct{}{}
			s.list = append(s.list, w)
		}
	}
	return s
}
