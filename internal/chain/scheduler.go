package chain

import (
	"context"
	"time"
)

// Timer is a pending scheduled action.
type Timer interface {
	// Stop cancels the action. It reports false if the action already ran
	// or was already stopped. A false result does not mean the effect was
	// applied: expiry handlers re-validate under the channel lock.
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Timer
}

// TimerScheduler schedules on the runtime timer wheel.
type TimerScheduler struct{}

// Schedule implements [Scheduler].
func (TimerScheduler) Schedule(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Notifier delivers messages that are not replies to a request, such as
// timeout announcements. Implementations own their error handling.
type Notifier interface {
	Notify(ctx context.Context, channel, text string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, channel, text string)

// Notify implements [Notifier].
func (f NotifierFunc) Notify(ctx context.Context, channel, text string) {
	f(ctx, channel, text)
}

// TurnRecord describes one accepted turn.
type TurnRecord struct {
	Channel string
	UserID  string
	Word    string
	Mode    Mode

	// Index is the session's turn count after this turn.
	Index int

	// Terminated is set when no legal continuation remained.
	Terminated bool

	At time.Time
}

// TurnObserver receives every accepted turn. ObserveTurn is called with the
// channel lock held and must not block.
type TurnObserver interface {
	ObserveTurn(rec TurnRecord)
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(TurnRecord) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) {}
