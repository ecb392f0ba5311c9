package drill

import "strconv"

// ItemStats counts outcomes for one word
type ItemStats struct {
	Correct int
	Wrong   int
}

// Attempts returns the total number of judged answers for the word
func (s ItemStats) Attempts() int {
	return s.Correct + s.Wrong
}

// OutcomeTracker keeps per-item counters for the whole session. Counters only
// ever go up.
type OutcomeTracker struct {
	stats []ItemStats
}

// NewOutcomeTracker creates a tracker for a bank of n words
func NewOutcomeTracker(n int) *OutcomeTracker {
	return &OutcomeTracker{stats: make([]ItemStats, n)}
}

// Record counts one verdict for the item
func (t *OutcomeTracker) Record(index int, verdict Verdict) {
	if verdict == Correct {
		t.stats[index].Correct++
	} else {
		t.stats[index].Wrong++
	}
}

// Stats returns a copy of the per-item counters
func (t *OutcomeTracker) Stats() []ItemStats {
	stats := make([]ItemStats, len(t.stats))
	copy(stats, t.stats)
	return stats
}

// Totals sums the counters over all items
func (t *OutcomeTracker) Totals() (correct, wrong int) {
	for _, s := range t.stats {
		correct += s.Correct
		wrong += s.Wrong
	}
	return correct, wrong
}

// Accuracy returns correct/(correct+wrong), or 0 before any answer
func (t *OutcomeTracker) Accuracy() float64 {
	correct, wrong := t.Totals()
	if correct+wrong == 0 {
		return 0
	}
	return float64(correct) / float64(correct+wrong)
}

// FormatAccuracy renders an accuracy ratio as a percentage with one decimal,
// e.g. 0.7 -> "70.0"
func FormatAccuracy(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64)
}
