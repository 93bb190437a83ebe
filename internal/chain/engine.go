// Package chain implements the word-chain game: per-channel sessions, turn
// validation, mode rules and timeout handling.
//
// An [Engine] owns every live session through its [Registry]. All
// transitions of one channel (start, submit, stop, hint, status, expiry) are
// serialized by that channel's lock; different channels proceed in parallel.
// Expiry actions carry the session identity and a timer generation and
// re-validate both under the lock, so an action that lost a race against a
// newer transition never applies its effect.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/observe"
)

// Vocabulary is the read side of the phonetic index. [*lexicon.Index]
// implements it.
type Vocabulary interface {
	Lookup(tone string, reverse, strict bool) []string
	NextTones(word string, reverse, strict bool) []string
	Entry(key string) (lexicon.Entry, bool)
	Contains(key string) bool
	Words() []string
}

// Compile-time check.
var _ Vocabulary = (*lexicon.Index)(nil)

// Request identifies who asks for what in which channel.
type Request struct {
	Channel string
	UserID  string

	// Authority is the caller's permission level. Level 2 and above may
	// stop sessions they did not start.
	Authority int

	// Word is the normalized submission.
	Word string

	// Warning overrides the session's warning flag for this request only.
	Warning *bool
}

// StartOptions configure a new session.
type StartOptions struct {
	Mode Mode

	// Warnings enables rejection messages. Nil uses [Settings.Warnings].
	Warnings *bool
}

// Response is the reply to a request. Text may be empty when the engine
// chose to stay silent.
type Response struct {
	Text string

	// Ended is set when the request destroyed the session.
	Ended bool
}

// Session end outcomes, used as metric labels.
const (
	outcomeStopped    = "stopped"
	outcomeTimeout    = "timeout"
	outcomeDeadEnd    = "dead_end"
	outcomePKResolved = "pk_resolved"
	outcomeFailed     = "failed"
	outcomeShutdown   = "shutdown"
)

// Option is a functional option for [New].
type Option func(*Engine)

// WithSettings replaces [DefaultSettings].
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings.Store(ptr(s.withDefaults())) }
}

// WithRegistry sets the session registry. Default: a fresh [NewRegistry].
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithScheduler sets the expiry scheduler. Default: [TimerScheduler].
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithClock sets the time source. Default: the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the random source used for start words, hints and arcade
// rules. Default: a randomly seeded PCG.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithNotifier sets where expiry announcements go.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithObserver receives every accepted turn.
func WithObserver(o TurnObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMentioner renders a user ID for messages, e.g. as a chat mention.
// Default: the ID itself.
func WithMentioner(fn func(userID string) string) Option {
	return func(e *Engine) { e.mention = fn }
}

// WithSuggester adds a "did you mean" line to not-in-dictionary rejections.
// fn returns the suggested key.
func WithSuggester(fn func(word string) (string, bool)) Option {
	return func(e *Engine) { e.suggest = fn }
}

// Engine runs word-chain sessions. It is safe for concurrent use.
type Engine struct {
	vocab    Vocabulary
	registry *Registry
	sched    Scheduler
	clock    Clock
	notifier Notifier
	observer TurnObserver
	metrics  *observe.Metrics
	mention  func(string) string
	suggest  func(string) (string, bool)

	settings atomic.Pointer[Settings]

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New returns an Engine playing over vocab.
func New(vocab Vocabulary, opts ...Option) *Engine {
	e := &Engine{
		vocab:    vocab,
		registry: NewRegistry(),
		sched:    TimerScheduler{},
		clock:    systemClock{},
		notifier: nopNotifier{},
		observer: nopObserver{},
		mention:  func(id string) string { return id },
	}
	e.settings.Store(ptr(DefaultSettings()))
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return *e.settings.Load()
}

// SetSettings replaces the settings. Running timers keep their deadline;
// the next transition of each session uses the new values.
func (e *Engine) SetSettings(s Settings) {
	e.settings.Store(ptr(s.withDefaults()))
}

// Registry returns the engine's session registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) intN(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(n)
}

// Start opens a session in req.Channel and draws the first word.
func (e *Engine) Start(ctx context.Context, req Request, opts StartOptions) (Response, error) {
	sl := e.registry.lock(req.Channel)
	defer sl.unlock()

	if sl.session != nil {
		return Response{}, ErrSessionActive
	}

	st := e.settings.Load()
	warnings := st.Warnings
	if opts.Warnings != nil {
		warnings = *opts.Warnings
	}
	now := e.clock.Now()
	s := newSession(req.Channel, req.UserID, opts.Mode, warnings, now)

	word, err := e.seed(ctx, s, st, now)
	if err != nil {
		slog.Error("chain: start failed", "channel_id", req.Channel, "err", err)
		e.metrics.RecordStartFailure(ctx, opts.Mode.Kind())
		return Response{Text: msgSeedFailure, Ended: true}, err
	}

	e.registry.install(sl, s)
	e.schedule(s, now)
	e.metrics.RecordSessionStart(ctx, opts.Mode.Kind())
	slog.Info("chain: session started",
		"channel_id", req.Channel,
		"session_id", s.id,
		"initiator", req.UserID,
		"mode", opts.Mode.Kind(),
		"word", word,
	)

	lead := msgStart
	if opts.Mode.PK {
		lead = msgStartPK
	}
	return Response{Text: e.formatWord(s, word, lead, now)}, nil
}

// Submit plays req.Word in req.Channel. Rejections are returned as
// [*Rejection]; their message is only put in the response when warnings are
// enabled. An empty word returns the session status.
func (e *Engine) Submit(ctx context.Context, req Request) (Response, error) {
	ctx, span := observe.StartSpan(ctx, "chain.submit", trace.WithAttributes(
		attribute.String("channel_id", req.Channel),
	))
	defer span.End()
	began := time.Now()
	defer func() { e.metrics.RecordSubmitDuration(ctx, time.Since(began)) }()

	resp, err := e.submit(ctx, req)

	var rej *Rejection
	if !errors.As(err, &rej) {
		return resp, err
	}
	e.metrics.RecordRejection(ctx, string(rej.Reason))
	span.SetAttributes(attribute.String("rejection", string(rej.Reason)))

	// Suggestions scan the vocabulary, so they run after the channel lock is
	// released and only when somebody reads them.
	if rej.Reason == ReasonNotInDictionary && resp.Text != "" && e.suggest != nil {
		if alt, ok := e.suggest(req.Word); ok {
			entry, _ := e.vocab.Entry(alt)
			rej.Message += msgSuggest(entry.Display)
			resp.Text = rej.Message
		}
	}
	return resp, err
}

func (e *Engine) submit(ctx context.Context, req Request) (Response, error) {
	sl := e.registry.lookup(req.Channel)
	if sl == nil {
		return Response{}, ErrNoSession
	}
	defer sl.unlock()

	s := sl.session
	if s == nil {
		return Response{}, ErrNoSession
	}
	if req.Word == "" {
		return Response{Text: e.status(s)}, nil
	}

	warn := s.warnings
	if req.Warning != nil {
		warn = *req.Warning
	}
	if rej := e.validate(s, req.UserID, req.Word); rej != nil {
		if !warn {
			return Response{}, rej
		}
		return Response{Text: rej.Message}, rej
	}

	return e.accept(ctx, sl, s, req)
}

// validate checks a submission in order: elimination, consecutive turn,
// reuse, dictionary membership, pronunciation.
func (e *Engine) validate(s *session, user, word string) *Rejection {
	switch {
	case s.mode.PK && s.isEliminated(user):
		return &Rejection{Reason: ReasonEliminated, Message: msgEliminated}
	case s.mode.PK && s.lastUser == user:
		return &Rejection{Reason: ReasonConsecutiveTurn, Message: msgConsecutive}
	case s.used(word):
		return &Rejection{Reason: ReasonAlreadyUsed, Message: msgAlreadyUsed}
	case !e.vocab.Contains(word):
		return &Rejection{Reason: ReasonNotInDictionary, Message: msgNotFound(word)}
	case !s.allowed(word):
		return &Rejection{Reason: ReasonMismatch, Message: e.formatNext(s)}
	}
	return nil
}

func (e *Engine) accept(ctx context.Context, sl *slot, s *session, req Request) (Response, error) {
	st := e.settings.Load()
	now := e.clock.Now()
	word := req.Word

	s.index++
	s.history[word] = struct{}{}
	s.credit(req.UserID, s.tones)
	hasNext := e.prepareNext(ctx, s, word, st, now)

	var b strings.Builder
	b.WriteString(e.formatWord(s, word, msgAccepted, now))
	if s.mode.PK {
		for _, id := range s.recordPKTurn(req.UserID) {
			b.WriteString("\n" + msgStarved(e.mention(id)))
		}
	}
	s.stopTimer()

	e.observer.ObserveTurn(TurnRecord{
		Channel:    s.channel,
		UserID:     req.UserID,
		Word:       word,
		Mode:       s.mode,
		Index:      s.index,
		Terminated: !hasNext,
		At:         now,
	})
	e.metrics.RecordTurn(ctx, s.mode.Kind(), len(s.next))
	observe.Logger(ctx).Debug("chain: turn accepted",
		"channel_id", s.channel,
		"session_id", s.id,
		"user_id", req.UserID,
		"word", word,
		"index", s.index,
		"candidates", len(s.next),
	)

	if hasNext {
		e.schedule(s, now)
		return Response{Text: b.String()}, nil
	}

	if !s.mode.PK {
		b.WriteString("\n" + msgDeadEnd)
		e.end(ctx, sl, s, outcomeDeadEnd)
		return Response{Text: b.String(), Ended: true}, nil
	}

	// PK dead end: the player who left no continuation is out.
	s.eliminated[req.UserID] = struct{}{}
	b.WriteString("\n" + msgEliminatedPlayer(e.mention(req.UserID)))
	standing := s.standing()
	switch len(standing) {
	case 0:
		b.WriteString(msgNoWinner)
		e.end(ctx, sl, s, outcomePKResolved)
		return Response{Text: b.String(), Ended: true}, nil
	case 1:
		b.WriteString("\n" + msgWinner(e.mention(standing[0])))
		e.end(ctx, sl, s, outcomePKResolved)
		return Response{Text: b.String(), Ended: true}, nil
	}

	restart, err := e.seed(ctx, s, st, now)
	if err != nil {
		slog.Error("chain: pk restart failed", "channel_id", s.channel, "session_id", s.id, "err", err)
		b.WriteString("\n" + msgSeedFailure)
		e.end(ctx, sl, s, outcomeFailed)
		return Response{Text: b.String(), Ended: true}, err
	}
	e.schedule(s, now)
	b.WriteString("\n" + e.formatWord(s, restart, msgRestartPK, now))
	return Response{Text: b.String()}, nil
}

// seed draws a playable start word. The turn index, last user and
// participant counters reset; history is kept.
func (e *Engine) seed(ctx context.Context, s *session, st *Settings, now time.Time) (string, error) {
	s.index = 0
	words := e.vocab.Words()
	if len(words) > 0 {
		for range st.StartAttempts {
			w := words[e.intN(len(words))]
			if isExcluded(st, w) || s.used(w) {
				continue
			}
			if e.prepareNext(ctx, s, w, st, now) {
				s.history[w] = struct{}{}
				s.lastUser = ""
				s.participants = make(map[string]*Participant)
				return w, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %d attempts over %d words", ErrIndexInconsistent, st.StartAttempts, len(words))
}

func isExcluded(st *Settings, w string) bool {
	for _, x := range st.ExcludedStarts {
		if x == w {
			return true
		}
	}
	return false
}

// prepareNext computes the required tones, the legal next words and the
// deadline after word was played. It reports whether any next word exists.
func (e *Engine) prepareNext(ctx context.Context, s *session, word string, st *Settings, now time.Time) bool {
	s.tones = e.vocab.NextTones(word, s.mode.Reverse, s.mode.Strict)
	s.restriction, s.rule = "", ""

	var next []string
	seen := make(map[string]struct{})
	for _, t := range s.tones {
		for _, w := range e.vocab.Lookup(t, s.mode.Reverse, s.mode.Strict) {
			if _, dup := seen[w]; dup || s.used(w) {
				continue
			}
			seen[w] = struct{}{}
			next = append(next, w)
		}
	}
	s.setNext(next)
	s.deadline = st.Deadline(s.mode, now, s.deadline, s.index)

	if !s.mode.Arcade || len(next) == 0 {
		return len(next) > 0
	}
	e.restrict(s, st)
	if s.rule != "" {
		e.metrics.RecordRestriction(ctx, s.rule)
	}
	return true
}

// schedule replaces the pending expiry of s with one at s.deadline.
func (e *Engine) schedule(s *session, now time.Time) {
	s.stopTimer()
	gen, id, channel := s.timerGen, s.id, s.channel
	s.timer = e.sched.Schedule(s.deadline.Sub(now), func() {
		e.expire(channel, id, gen)
	})
}

func (e *Engine) expire(channel string, id uuid.UUID, gen uint64) {
	ctx := context.Background()
	sl := e.registry.lookup(channel)
	if sl == nil {
		return
	}
	s := sl.session
	if s == nil || s.id != id || s.timerGen != gen {
		sl.unlock()
		slog.Debug("chain: stale expiry ignored", "channel_id", channel, "session_id", id)
		return
	}

	st := e.settings.Load()
	limit := st.TurnLimit(s.mode)
	var text string
	switch {
	case s.mode.PK:
		winner := ""
		if s.lastUser != "" && len(s.joined) > 1 {
			winner = e.mention(s.lastUser)
		}
		text = msgTimeoutPK(limit, winner)
	case s.mode.Arcade:
		text = msgArcadeFailed
	default:
		text = msgTimeout(limit)
	}
	s.timer = nil
	e.end(ctx, sl, s, outcomeTimeout)
	sl.unlock()

	slog.Info("chain: session timed out", "channel_id", channel, "session_id", id)
	e.notifier.Notify(ctx, channel, text)
}

// end destroys s. The slot lock must be held.
func (e *Engine) end(ctx context.Context, sl *slot, s *session, outcome string) {
	s.stopTimer()
	e.registry.clear(sl)
	e.metrics.RecordSessionEnd(ctx, s.mode.Kind(), outcome)
	slog.Info("chain: session ended",
		"channel_id", s.channel,
		"session_id", s.id,
		"outcome", outcome,
		"turns", len(s.history),
		"duration", e.clock.Now().Sub(s.startedAt),
	)
}

// Stop ends the session of req.Channel. Only the initiator or a caller with
// authority 2 or above may stop it.
func (e *Engine) Stop(ctx context.Context, req Request) (Response, error) {
	sl := e.registry.lookup(req.Channel)
	if sl == nil {
		return Response{}, ErrNoSession
	}
	defer sl.unlock()

	s := sl.session
	if s == nil {
		return Response{}, ErrNoSession
	}
	if req.UserID != s.initiator && req.Authority < 2 {
		e.metrics.RecordRejection(ctx, string(ReasonPermission))
		return Response{Text: msgNoPermission}, &Rejection{Reason: ReasonPermission, Message: msgNoPermission}
	}
	e.end(ctx, sl, s, outcomeStopped)
	return Response{Text: msgStopped, Ended: true}, nil
}

// Hint reveals one random legal next word. Hints are not available in PK
// or arcade sessions.
func (e *Engine) Hint(ctx context.Context, req Request) (Response, error) {
	sl := e.registry.lookup(req.Channel)
	if sl == nil {
		return Response{}, ErrNoSession
	}
	defer sl.unlock()

	s := sl.session
	if s == nil {
		return Response{}, ErrNoSession
	}
	var msg string
	switch {
	case s.mode.PK:
		msg = msgHintPK
	case s.mode.Arcade:
		msg = msgHintArcade
	case len(s.next) == 0:
		return Response{}, fmt.Errorf("%w: live session without candidates", ErrIndexInconsistent)
	}
	if msg != "" {
		e.metrics.RecordRejection(ctx, string(ReasonHintUnavailable))
		return Response{Text: msg}, &Rejection{Reason: ReasonHintUnavailable, Message: msg}
	}

	w := s.next[e.intN(len(s.next))]
	entry, _ := e.vocab.Entry(w)
	return Response{Text: msgHint(entry.Display, entry.Category)}, nil
}

// Status describes what the next word must look like and, in PK mode, who
// is still in the game.
func (e *Engine) Status(_ context.Context, channel string) (Response, error) {
	sl := e.registry.lookup(channel)
	if sl == nil {
		return Response{}, ErrNoSession
	}
	defer sl.unlock()

	if sl.session == nil {
		return Response{}, ErrNoSession
	}
	return Response{Text: e.status(sl.session)}, nil
}

func (e *Engine) status(s *session) string {
	next := e.formatNext(s)
	if !s.mode.PK {
		return next
	}
	if len(s.order) == 0 {
		return msgNoPlayers + "\n" + next
	}
	players := s.standing()
	for i, id := range players {
		players[i] = e.mention(id)
	}
	return msgPlayers(strings.Join(players, "，")) + "\n" + next
}

// SetWarning toggles rejection messages for the live session.
func (e *Engine) SetWarning(_ context.Context, channel string, on bool) (Response, error) {
	sl := e.registry.lookup(channel)
	if sl == nil {
		return Response{}, ErrNoSession
	}
	defer sl.unlock()

	if sl.session == nil {
		return Response{}, ErrNoSession
	}
	sl.session.warnings = on
	if on {
		return Response{Text: msgWarningsOn}, nil
	}
	return Response{Text: msgWarningsOff}, nil
}

// Snapshot returns a copy of the session state of channel.
func (e *Engine) Snapshot(channel string) (Snapshot, bool) {
	sl := e.registry.lookup(channel)
	if sl == nil {
		return Snapshot{}, false
	}
	defer sl.unlock()

	if sl.session == nil {
		return Snapshot{}, false
	}
	return sl.session.snapshot(), true
}

// Close ends every live session without announcements.
func (e *Engine) Close(ctx context.Context) {
	for _, ch := range e.registry.Channels() {
		sl := e.registry.lock(ch)
		if s := sl.session; s != nil {
			e.end(ctx, sl, s, outcomeShutdown)
		}
		sl.unlock()
	}
}

func ptr[T any](v T) *T { return &v }
