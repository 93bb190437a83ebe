package chain

import (
	"errors"
)

var (
	// ErrNoSession is returned by operations that need a live session in a
	// channel that has none.
	ErrNoSession = errors.New("chain: no active session")

	// ErrSessionActive is returned by [Engine.Start] when the channel already
	// has a live session.
	ErrSessionActive = errors.New("chain: session already active")

	// ErrIndexInconsistent means no playable start word could be sampled. The
	// affected session is destroyed.
	ErrIndexInconsistent = errors.New("chain: no playable start word")
)

// Reason classifies a [Rejection].
type Reason string

const (
	ReasonEliminated      Reason = "eliminated"
	ReasonConsecutiveTurn Reason = "consecutive_turn"
	ReasonAlreadyUsed     Reason = "already_used"
	ReasonNotInDictionary Reason = "not_in_dictionary"
	ReasonMismatch        Reason = "mismatch"
	ReasonPermission      Reason = "permission_denied"
	ReasonHintUnavailable Reason = "hint_unavailable"
)

// Rejection is returned when a request is refused. The session is left
// unchanged.
type Rejection struct {
	Reason Reason

	// Message is the user-facing explanation.
	Message string
}

func (r *Rejection) Error() string {
	return "chain: rejected (" + string(r.Reason) + "): " + r.Message
}

// IsRejection reports whether err is a [*Rejection] with the given reason.
// An empty reason matches any rejection.
func IsRejection(err error, reason Reason) bool {
	var rej *Rejection
	if !errors.As(err, &rej) {
		return false
	}
	return reason == "" || rej.Reason == reason
}
