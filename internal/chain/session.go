package chain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// session is the state of one live chain. It is only touched with its
// channel's slot lock held.
type session struct {
	id        uuid.UUID
	channel   string
	initiator string
	mode      Mode
	warnings  bool
	startedAt time.Time

	history     map[string]struct{}
	tones       []string
	next        []string
	nextSet     map[string]struct{}
	restriction string
	rule        string
	index       int
	deadline    time.Time

	timer    Timer
	timerGen uint64

	// PK bookkeeping. rounds counts successful turns since each tracked
	// player last played; order is the join order of rounds' keys.
	rounds     map[string]int
	order      []string
	joined     map[string]struct{}
	eliminated map[string]struct{}
	lastUser   string

	participants map[string]*Participant
}

// Participant holds the per-user counters of the current run. They reset
// whenever a new start word is drawn.
type Participant struct {
	Turns int

	// Tones counts how often the player matched each tone.
	Tones map[string]int
}

func newSession(channel, initiator string, mode Mode, warnings bool, now time.Time) *session {
	s := &session{
		id:           uuid.New(),
		channel:      channel,
		initiator:    initiator,
		mode:         mode,
		warnings:     warnings,
		startedAt:    now,
		history:      make(map[string]struct{}),
		participants: make(map[string]*Participant),
	}
	if mode.PK {
		s.rounds = make(map[string]int)
		s.joined = make(map[string]struct{})
		s.eliminated = make(map[string]struct{})
	}
	return s
}

func (s *session) used(word string) bool {
	_, ok := s.history[word]
	return ok
}

func (s *session) allowed(word string) bool {
	_, ok := s.nextSet[word]
	return ok
}

func (s *session) setNext(words []string) {
	s.next = words
	s.nextSet = make(map[string]struct{}, len(words))
	for _, w := range words {
		s.nextSet[w] = struct{}{}
	}
}

func (s *session) isEliminated(user string) bool {
	_, ok := s.eliminated[user]
	return ok
}

func (s *session) credit(user string, tones []string) {
	p, ok := s.participants[user]
	if !ok {
		p = &Participant{Tones: make(map[string]int)}
		s.participants[user] = p
	}
	p.Turns++
	for _, t := range tones {
		p.Tones[t]++
	}
}

// recordPKTurn resets user's counter, advances everyone else's and drops
// players whose counter reached twice the tracked player count. It returns
// the dropped players in join order.
func (s *session) recordPKTurn(user string) (dropped []string) {
	if _, ok := s.rounds[user]; !ok {
		s.order = append(s.order, user)
	}
	s.rounds[user] = -1
	s.joined[user] = struct{}{}
	s.lastUser = user

	limit := 2 * len(s.rounds)
	kept := s.order[:0]
	for _, id := range s.order {
		s.rounds[id]++
		if s.rounds[id] >= limit {
			delete(s.rounds, id)
			dropped = append(dropped, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return dropped
}

// standing returns the tracked players that are not eliminated, in join
// order.
func (s *session) standing() []string {
	var out []string
	for _, id := range s.order {
		if !s.isEliminated(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate an action that already fired and is waiting for the lock.
	s.timerGen++
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID          string
	Channel     string
	Initiator   string
	Mode        Mode
	Warnings    bool
	Index       int
	Tones       []string
	Next        []string
	Restriction string
	Deadline    time.Time
	History     int

	// PK only.
	LastUser   string
	Tracked    map[string]int
	Eliminated []string

	Participants map[string]Participant
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id.String(),
		Channel:      s.channel,
		Initiator:    s.initiator,
		Mode:         s.mode,
		Warnings:     s.warnings,
		Index:        s.index,
		Tones:        slices.Clone(s.tones),
		Next:         slices.Clone(s.next),
		Restriction:  s.restriction,
		Deadline:     s.deadline,
		History:      len(s.history),
		LastUser:     s.lastUser,
		Participants: make(map[string]Participant, len(s.participants)),
	}
	if s.mode.PK {
		snap.Tracked = make(map[string]int, len(s.rounds))
		for id, n := range s.rounds {
			snap.Tracked[id] = n
		}
		for id := range s.eliminated {
			snap.Eliminated = append(snap.Eliminated, id)
		}
		slices.Sort(snap.Eliminated)
	}
	for id, p := range s.participants {
		cp := Participant{Turns: p.Turns, Tones: make(map[string]int, len(p.Tones))}
		for t, n := range p.Tones {
			cp.Tones[t] = n
		}
		snap.Participants[id] = cp
	}
	return snap
}
