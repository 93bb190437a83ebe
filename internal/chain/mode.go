package chain

import (
	"math"
	"time"
)

// Mode is the set of rule variants a session is started with.
type Mode struct {
	// Reverse chains on first characters: each word's last character must
	// match the previous word's first.
	Reverse bool

	// Strict matches a single curated reading instead of any reading.
	Strict bool

	// Arcade shrinks the time budget every turn and may restrict the legal
	// next words.
	Arcade bool

	// PK is the competitive mode with turn order and elimination.
	PK bool
}

// Kind is a low-cardinality label for metrics: "pk", "arcade" or "normal".
func (m Mode) Kind() string {
	switch {
	case m.PK:
		return "pk"
	case m.Arcade:
		return "arcade"
	default:
		return "normal"
	}
}

func (m Mode) prefix() string {
	p := ""
	if m.Reverse {
		p += "反向"
	}
	if m.Strict {
		p += "严格"
	}
	if m.Arcade {
		p += "街机"
	}
	return p
}

// Category is one arcade restriction group: words whose [lexicon.Entry]
// Group equals Group may be singled out with the phrase "属于<Label>且".
type Category struct {
	Group string
	Label string
}

// Settings are the tunables of an [Engine]. They can be replaced at runtime
// with [Engine.SetSettings]; live sessions pick them up on their next
// transition.
type Settings struct {
	// Unit is the base time unit. Default: one minute.
	Unit time.Duration

	// NormalTurns, PKTurns and ArcadeTurns are the per-mode turn budgets in
	// units. Defaults: 30, 2 and 1.
	NormalTurns int
	PKTurns     int
	ArcadeTurns int

	// StartAttempts bounds start-word sampling. Default: 20.
	StartAttempts int

	// ExcludedStarts are never used as start words.
	ExcludedStarts []string

	// Categories are the arcade restriction groups in priority order.
	Categories []Category

	// Warnings is the default rejection-message flag of new sessions.
	Warnings bool
}

// DefaultSettings returns the standard timings and categories.
func DefaultSettings() Settings {
	return Settings{
		Unit:           time.Minute,
		NormalTurns:    30,
		PKTurns:        2,
		ArcadeTurns:    1,
		StartAttempts:  20,
		ExcludedStarts: []string{"娘娘"},
		Categories: []Category{
			{Group: "character", Label: "角色名"},
			{Group: "spellcard", Label: "符卡名"},
			{Group: "chapter", Label: "篇目名"},
			{Group: "ability", Label: "角色能力"},
			{Group: "title", Label: "角色称号"},
			{Group: "skill", Label: "格斗作技能"},
		},
	}
}

// withDefaults fills zero fields from [DefaultSettings].
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Unit <= 0 {
		s.Unit = d.Unit
	}
	if s.NormalTurns <= 0 {
		s.NormalTurns = d.NormalTurns
	}
	if s.PKTurns <= 0 {
		s.PKTurns = d.PKTurns
	}
	if s.ArcadeTurns <= 0 {
		s.ArcadeTurns = d.ArcadeTurns
	}
	if s.StartAttempts <= 0 {
		s.StartAttempts = d.StartAttempts
	}
	return s
}

// TurnLimit is the full time budget of a turn in m. Arcade budgets shrink
// from this value.
func (s Settings) TurnLimit(m Mode) time.Duration {
	switch {
	case m.Arcade:
		return time.Duration(s.ArcadeTurns) * s.Unit
	case m.PK:
		return time.Duration(s.PKTurns) * s.Unit
	default:
		return time.Duration(s.NormalTurns) * s.Unit
	}
}

// maxDecayTurns caps the turn index used by the arcade formulas.
const maxDecayTurns = 100

// Deadline computes the expiry of the turn that begins at now.
//
// In arcade mode the deadline is
//
//	min(now + limit, prior − min(100, index) · unit/120) + limit
//
// where a zero prior counts as unbounded. The per-turn decay is unit/120,
// not half a unit: with the default one-minute unit that is half a second
// per turn. Other modes get now + limit.
func (s Settings) Deadline(m Mode, now, prior time.Time, index int) time.Time {
	limit := s.TurnLimit(m)
	if !m.Arcade {
		return now.Add(limit)
	}
	capped := now.Add(limit)
	if !prior.IsZero() {
		decay := time.Duration(min(maxDecayTurns, index)) * (s.Unit / 120)
		if shrunk := prior.Add(-decay); shrunk.Before(capped) {
			capped = shrunk
		}
	}
	return capped.Add(limit)
}

// ArcadeThreshold is the smallest candidate count an arcade restriction must
// still exceed: max(1, ⌈size · (0.8 − min(100, index) · 0.006)⌉).
func ArcadeThreshold(size, index int) int {
	// The explicit conversion keeps the product from being fused into the
	// subtraction, so results match across architectures.
	f := 0.8 - float64(float64(min(maxDecayTurns, index))*0.006)
	return max(1, int(math.Ceil(float64(size)*f)))
}
