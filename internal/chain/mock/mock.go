// Package mock provides hand-written test doubles for the chain package's
// collaborators: a manually driven [Scheduler], a settable [Clock], and
// recording [Notifier] and [Observer] implementations.
//
// All types are safe for concurrent use.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/jielong/internal/chain"
)

// Compile-time interface assertions.
var (
	_ chain.Scheduler    = (*Scheduler)(nil)
	_ chain.Clock        = (*Clock)(nil)
	_ chain.Notifier     = (*Notifier)(nil)
	_ chain.TurnObserver = (*Observer)(nil)
)

// Timer is one scheduled action.
type Timer struct {
	mu      sync.Mutex
	Delay   time.Duration
	fn      func()
	stopped bool
}

// Stop implements [chain.Timer].
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Stopped reports whether Stop was called.
func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire runs the action regardless of whether the timer was stopped. This
// reproduces the race where an action fires just before being cancelled.
func (t *Timer) Fire() {
	t.fn()
}

// Scheduler records scheduled actions without running them.
type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

// Schedule implements [chain.Scheduler].
func (s *Scheduler) Schedule(d time.Duration, fn func()) chain.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{Delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Timers returns every timer scheduled so far, oldest first.
func (s *Scheduler) Timers() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Timer(nil), s.timers...)
}

// Last returns the most recently scheduled timer, or nil.
func (s *Scheduler) Last() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// Pending returns the timers that were not stopped.
func (s *Scheduler) Pending() []*Timer {
	var out []*Timer
	for _, t := range s.Timers() {
		if !t.Stopped() {
			out = append(out, t)
		}
	}
	return out
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements [chain.Clock].
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Message is one recorded notification.
type Message struct {
	Channel string
	Text    string
}

// Notifier records notifications.
type Notifier struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements [chain.Notifier].
func (n *Notifier) Notify(_ context.Context, channel, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, Message{Channel: channel, Text: text})
}

// Messages returns a copy of all recorded notifications.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// Observer records accepted turns.
type Observer struct {
	mu      sync.Mutex
	records []chain.TurnRecord
}

// ObserveTurn implements [chain.TurnObserver].
func (o *Observer) ObserveTurn(rec chain.TurnRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

// Records returns a copy of all recorded turns.
func (o *Observer) Records() []chain.TurnRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]chain.TurnRecord(nil), o.records...)
}
