package drill

import (
	"context"
	"errors"
)

// ErrSpeechUnavailable is returned by a Speaker when the platform has no
// speech capability at all
var ErrSpeechUnavailable = errors.New("speech playback unavailable")

// Effect is a feedback sound played after an answer
type Effect int

const (
	EffectCorrect Effect = iota
	EffectWrong
)

func (e Effect) String() string {
	if e == EffectCorrect {
		return "correct"
	}
	return "wrong"
}

// EffectFor returns the feedback sound for a verdict
func EffectFor(verdict Verdict) Effect {
	if verdict == Correct {
		return EffectCorrect
	}
	return EffectWrong
}

// Speaker pronounces text. Implementations return quickly; a new request
// supersedes any utterance still playing.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// EffectPlayer plays feedback sounds, fire-and-forget
type EffectPlayer interface {
	PlayEffect(ctx context.Context, kind Effect) error
}

// Notifier shows a short, non-blocking message to the learner
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) {
	f(msg)
}

// NopSpeaker discards speech requests
type NopSpeaker struct{}

func (NopSpeaker) Speak(context.Context, string) error { return nil }

// NopEffects discards effect requests
type NopEffects struct{}

func (NopEffects) PlayEffect(context.Context, Effect) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
