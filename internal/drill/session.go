package drill

import (
	"context"
	"errors"
	"io"
	"log"
	"time"
)

// User-facing notification texts
const (
	MsgSpeechUnavailable = "❌ 語音功能不可用"
	MsgNowPlaying        = "🔊 播放中..."
	MsgReviewStarted     = "🔄 一輪結束，進入錯題複習模式！"
	MsgReviewComplete    = "🎉 錯題複習完畢！"
	MsgPassRestarted     = "💯 太強了！全部答對，直接開始新的一輪！"
)

// VerdictMessage returns the feedback line for an evaluated answer. An empty
// submission counts as skipped.
func VerdictMessage(e Evaluation) string {
	switch {
	case e.IsCorrect():
		return "✅ 答對了！太棒了！"
	case e.Submitted == "":
		return "❌ 跳過！正確答案是：" + e.Target
	default:
		return "❌ 答錯了！正確答案是：" + e.Target
	}
}

// TransitionMessage returns the notice shown for a transition, or "" when the
// transition is silent
func TransitionMessage(t Transition) string {
	switch t {
	case TransitionReviewStarted:
		return MsgReviewStarted
	case TransitionReviewComplete:
		return MsgReviewComplete
	case TransitionPassRestarted:
		return MsgPassRestarted
	}
	return ""
}

// Session owns all state of one drill: the bank, the state machine, the
// counters and the attempt log. It is not safe for concurrent use; callers
// that share a session must serialize access.
type Session struct {
	bank       *WordBank
	controller *Controller
	tracker    *OutcomeTracker
	log        *AttemptLog

	now      func() time.Time
	speaker  Speaker
	effects  EffectPlayer
	notifier Notifier
	logger   *log.Logger
}

// Option configures a Session
type Option func(*Session)

// WithClock sets the time source used to stamp attempts
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSpeaker sets the speech collaborator. A nil speaker means speech is
// unavailable.
func WithSpeaker(speaker Speaker) Option {
	return func(s *Session) { s.speaker = speaker }
}

// WithEffects sets the feedback sound collaborator
func WithEffects(effects EffectPlayer) Option {
	return func(s *Session) { s.effects = effects }
}

// WithNotifier sets where learner-visible notices go
func WithNotifier(notifier Notifier) Option {
	return func(s *Session) { s.notifier = notifier }
}

// WithLogger sets the logger for swallowed collaborator failures
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession starts a drill over bank in LEARNING mode at item 0
func NewSession(bank *WordBank, opts ...Option) *Session {
	s := &Session{
		bank:       bank,
		controller: NewController(bank.Size()),
		tracker:    NewOutcomeTracker(bank.Size()),
		log:        &AttemptLog{},
		now:        time.Now,
		speaker:    NopSpeaker{},
		effects:    NopEffects{},
		notifier:   nopNotifier{},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bank returns the session's word bank
func (s *Session) Bank() *WordBank {
	return s.bank
}

// CurrentItemIndex returns the index of the word being asked
func (s *Session) CurrentItemIndex() int {
	return s.controller.Current()
}

// CurrentWord returns the word being asked
func (s *Session) CurrentWord() string {
	return s.bank.Get(s.controller.Current())
}

// Mode returns the current pass
func (s *Session) Mode() Mode {
	return s.controller.Mode()
}

// SubmitAnswer judges text against the current word and records the outcome.
// It does not move to the next word; call Next once the result was shown.
func (s *Session) SubmitAnswer(ctx context.Context, text string) Evaluation {
	index := s.controller.Current()
	word := s.bank.Get(index)
	eval := Evaluate(word, text)

	s.tracker.Record(index, eval.Verdict)
	s.log.Append(AttemptRecord{
		Mode:      s.controller.Mode(),
		Item:      index,
		Word:      word,
		Submitted: eval.Submitted,
		Verdict:   eval.Verdict,
		At:        s.now(),
	})
	s.controller.RecordOutcome(index, eval.Verdict)

	if err := s.effects.PlayEffect(ctx, EffectFor(eval.Verdict)); err != nil {
		s.logger.Printf("Warning: failed to play %s effect: %v", EffectFor(eval.Verdict), err)
	}

	return eval
}

// Next moves on after a result was shown
func (s *Session) Next() Transition {
	return s.advance()
}

// Skip moves on without recording an outcome for the current word
func (s *Session) Skip() Transition {
	return s.advance()
}

func (s *Session) advance() Transition {
	transition := s.controller.Advance()
	if msg := TransitionMessage(transition); msg != "" {
		s.notifier.Notify(msg)
	}
	return transition
}

// Speak asks the speaker to pronounce the current word. Speech problems are
// reported to the learner or logged, never returned.
func (s *Session) Speak(ctx context.Context) {
	if s.speaker == nil {
		s.notifier.Notify(MsgSpeechUnavailable)
		return
	}

	err := s.speaker.Speak(ctx, s.CurrentWord())
	switch {
	case err == nil:
		s.notifier.Notify(MsgNowPlaying)
	case errors.Is(err, ErrSpeechUnavailable):
		s.notifier.Notify(MsgSpeechUnavailable)
	default:
		s.logger.Printf("Warning: speech playback failed: %v", err)
	}
}

// Snapshot is a read-only copy of the session for statistics display
type Snapshot struct {
	Mode         Mode
	CurrentItem  int
	Cursor       int
	Total        int
	Words        []string
	Stats        []ItemStats
	WrongQueue   []int
	Correct      int
	Wrong        int
	Accuracy     float64
	AccuracyText string
	Attempts     []AttemptRecord
}

// Snapshot copies the current session state. Changing the returned value has
// no effect on the session.
func (s *Session) Snapshot() Snapshot {
	correct, wrong := s.tracker.Totals()
	accuracy := s.tracker.Accuracy()
	return Snapshot{
		Mode:         s.controller.Mode(),
		CurrentItem:  s.controller.Current(),
		Cursor:       s.controller.Cursor(),
		Total:        s.bank.Size(),
		Words:        s.bank.Words(),
		Stats:        s.tracker.Stats(),
		WrongQueue:   s.controller.WrongQueue(),
		Correct:      correct,
		Wrong:        wrong,
		Accuracy:     accuracy,
		AccuracyText: FormatAccuracy(accuracy),
		Attempts:     s.log.Records(),
	}
}
