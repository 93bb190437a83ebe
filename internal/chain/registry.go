package chain

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry maps channels to their live session. Every channel has its own
// lock, held for one whole transition, so channels never block each other.
//
// Slots are created on first use and kept for the lifetime of the registry:
// a waiter may still hold a pointer to a slot, so removing it could split one
// channel across two locks.
type Registry struct {
	mu     sync.Mutex
	slots  map[string]*slot
	active atomic.Int64
}

type slot struct {
	mu      sync.Mutex
	channel string
	session *session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

// lock returns the slot of channel with its lock held.
func (r *Registry) lock(channel string) *slot {
	r.mu.Lock()
	sl, ok := r.slots[channel]
	if !ok {
		sl = &slot{channel: channel}
		r.slots[channel] = sl
	}
	r.mu.Unlock()

	sl.mu.Lock()
	return sl
}

// lookup is lock for channels that already have a slot. It returns nil
// instead of creating one, so queries about arbitrary channels leave the
// registry untouched.
func (r *Registry) lookup(channel string) *slot {
	r.mu.Lock()
	sl, ok := r.slots[channel]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	sl.mu.Lock()
	return sl
}

func (sl *slot) unlock() {
	sl.mu.Unlock()
}

// install makes s the session of the locked slot.
func (r *Registry) install(sl *slot, s *session) {
	if sl.session == nil {
		r.active.Add(1)
	}
	sl.session = s
}

// clear removes the session of the locked slot.
func (r *Registry) clear(sl *slot) {
	if sl.session != nil {
		r.active.Add(-1)
	}
	sl.session = nil
}

// Active returns the number of live sessions.
func (r *Registry) Active() int {
	return int(r.active.Load())
}

// Channels returns the channels that currently have a live session, sorted.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	slots := make([]*slot, 0, len(r.slots))
	for _, sl := range r.slots {
		slots = append(slots, sl)
	}
	r.mu.Unlock()

	var out []string
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.session != nil {
			out = append(out, sl.channel)
		}
		sl.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// Live reports whether channel has a live session. It never creates a slot,
// so it is cheap to call for every chat message.
func (r *Registry) Live(channel string) bool {
	r.mu.Lock()
	sl, ok := r.slots[channel]
	r.mu.Unlock()
	if !ok {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.session != nil
}
