package drill

import "strings"

// Placeholder stands in for a position that exists on only one side of a diff
const Placeholder = "_"

// DiffKind classifies one position of a positional diff
type DiffKind int

const (
	// DiffMatch means both sides have the same character
	DiffMatch DiffKind = iota
	// DiffTargetOnly means the answer is shorter than the target here
	DiffTargetOnly
	// DiffMismatch means both sides have a character and they differ
	DiffMismatch
	// DiffExtra means the answer is longer than the target here
	DiffExtra
)

func (k DiffKind) String() string {
	switch k {
	case DiffMatch:
		return "MATCH"
	case DiffTargetOnly:
		return "TARGET_ONLY"
	case DiffMismatch:
		return "MISMATCH"
	case DiffExtra:
		return "EXTRA"
	default:
		return "UNKNOWN"
	}
}

// DiffCell is one aligned position. Target or Submitted holds Placeholder when
// that side has no character at Position.
type DiffCell struct {
	Position  int
	Target    string
	Submitted string
	Kind      DiffKind
}

// Evaluation is the result of judging one answer
type Evaluation struct {
	Target    string
	Submitted string
	Verdict   Verdict
	Diff      []DiffCell
}

// IsCorrect reports whether the answer matched the target
func (e Evaluation) IsCorrect() bool {
	return e.Verdict == Correct
}

// Evaluate judges submitted against target. Only surrounding whitespace is
// removed from submitted; case and character width are compared as typed.
func Evaluate(target, submitted string) Evaluation {
	trimmed := strings.TrimSpace(submitted)

	verdict := Wrong
	if trimmed == target {
		verdict = Correct
	}

	return Evaluation{
		Target:    target,
		Submitted: trimmed,
		Verdict:   verdict,
		Diff:      PositionalDiff(target, trimmed),
	}
}

// PositionalDiff compares target and submitted character by character at the
// same index. There is no re-alignment: an inserted or dropped character
// shifts every later position.
func PositionalDiff(target, submitted string) []DiffCell {
	targetChars := []rune(target)
	submittedChars := []rune(submitted)

	maxLen := len(targetChars)
	if len(submittedChars) > maxLen {
		maxLen = len(submittedChars)
	}

	cells := make([]DiffCell, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		cell := DiffCell{Position: i, Target: Placeholder, Submitted: Placeholder}
		hasTarget := i < len(targetChars)
		hasSubmitted := i < len(submittedChars)
		if hasTarget {
			cell.Target = string(targetChars[i])
		}
		if hasSubmitted {
			cell.Submitted = string(submittedChars[i])
		}

		switch {
		case hasTarget && hasSubmitted && targetChars[i] == submittedChars[i]:
			cell.Kind = DiffMatch
		case hasTarget && hasSubmitted:
			cell.Kind = DiffMismatch
		case hasTarget:
			cell.Kind = DiffTargetOnly
		default:
			cell.Kind = DiffExtra
		}
		cells = append(cells, cell)
	}

	return cells
}
