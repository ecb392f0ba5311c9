// Package drill implements a single-learner dictation drill: the word bank,
// answer evaluation with a positional character diff, outcome counters, the
// attempt log and the LEARNING/REVIEW state machine that re-asks missed words.
//
// Everything in this package is synchronous and in-memory. Speech and sound
// effects are reached through the Speaker and EffectPlayer interfaces so the
// state machine never depends on a platform audio stack.
package drill

// Mode is the current drill pass
type Mode int

const (
	// ModeLearning walks the word bank in order
	ModeLearning Mode = iota
	// ModeReview re-asks the items in the wrong queue
	ModeReview
)

func (m Mode) String() string {
	switch m {
	case ModeLearning:
		return "LEARNING"
	case ModeReview:
		return "REVIEW"
	default:
		return "UNKNOWN"
	}
}

// Verdict is the outcome of a submitted answer
type Verdict int

const (
	Correct Verdict = iota
	Wrong
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "CORRECT"
	case Wrong:
		return "WRONG"
	default:
		return "UNKNOWN"
	}
}

// Transition describes what a call to Advance did
type Transition int

const (
	// TransitionLearningNext moved to the next word of the LEARNING pass
	TransitionLearningNext Transition = iota
	// TransitionReviewStarted ended the LEARNING pass with missed words outstanding
	TransitionReviewStarted
	// TransitionReviewNext re-targeted the head of the wrong queue
	TransitionReviewNext
	// TransitionReviewComplete emptied the review and restarted LEARNING at item 0
	TransitionReviewComplete
	// TransitionPassRestarted finished a clean LEARNING pass and looped to item 0
	TransitionPassRestarted
)

func (t Transition) String() string {
	switch t {
	case TransitionLearningNext:
		return "learning_next"
	case TransitionReviewStarted:
		return "review_started"
	case TransitionReviewNext:
		return "review_next"
	case TransitionReviewComplete:
		return "review_complete"
	case TransitionPassRestarted:
		return "pass_restarted"
	default:
		return "unknown"
	}
}
