package drill

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		wrong   int
		want    string
	}{
		{name: "no attempts", want: "0.0"},
		{name: "seven of ten", correct: 7, wrong: 3, want: "70.0"},
		{name: "all correct", correct: 4, want: "100.0"},
		{name: "all wrong", wrong: 2, want: "0.0"},
		{name: "one of three", correct: 1, wrong: 2, want: "33.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewOutcomeTracker(2)
			for i := 0; i < tt.correct; i++ {
				tracker.Record(i%2, Correct)
			}
			for i := 0; i < tt.wrong; i++ {
				tracker.Record(i%2, Wrong)
			}
			assert.Equal(t, tt.want, FormatAccuracy(tracker.Accuracy()))
		})
	}
}

func TestOutcomeTrackerCounts(t *testing.T) {
	tracker := NewOutcomeTracker(3)
	tracker.Record(0, Wrong)
	tracker.Record(0, Correct)
	tracker.Record(2, Correct)
	tracker.Record(2, Correct)

	assert.Equal(t, []ItemStats{{Correct: 1, Wrong: 1}, {}, {Correct: 2}}, tracker.Stats())
	correct, wrong := tracker.Totals()
	assert.Equal(t, 3, correct)
	assert.Equal(t, 1, wrong)
	assert.Equal(t, 2, tracker.Stats()[0].Attempts())
}

func TestAttemptLogNewestFirst(t *testing.T) {
	var l AttemptLog
	now := time.Now()
	for i := 0; i < 4; i++ {
		l.Append(AttemptRecord{Item: i, At: now})
	}
	// Duplicates are kept.
	l.Append(AttemptRecord{Item: 1, At: now})

	records := l.Records()
	require.Equal(t, 5, l.Len())
	items := make([]int, len(records))
	for i, r := range records {
		items[i] = r.Item
	}
	assert.Equal(t, []int{1, 3, 2, 1, 0}, items)
}

func TestNewWordBank(t *testing.T) {
	tests := []struct {
		name    string
		words   []string
		wantErr error
	}{
		{name: "valid", words: []string{"黑皮鞋", "穿戴", "面具"}},
		{name: "empty", words: nil, wantErr: ErrEmptyBank},
		{name: "blank word", words: []string{"海洋", " "}, wantErr: ErrBlankWord},
		{name: "duplicate", words: []string{"海洋", "寒冷", "海洋"}, wantErr: ErrDuplicateWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := NewWordBank(tt.words)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, bank)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.words), bank.Size())
			assert.Equal(t, tt.words, bank.Words())
		})
	}
}

func TestWordBankIsImmutable(t *testing.T) {
	words := []string{"北方", "扁平"}
	bank, err := NewWordBank(words)
	require.NoError(t, err)

	words[0] = "changed"
	bank.Words()[1] = "changed"
	assert.Equal(t, "北方", bank.Get(0))
	assert.Equal(t, "扁平", bank.Get(1))
}

func TestWordBankGetOutOfRangePanics(t *testing.T) {
	bank, err := NewWordBank([]string{"北方"})
	require.NoError(t, err)
	assert.Panics(t, func() { bank.Get(1) })
	assert.Panics(t, func() { bank.Get(-1) })
}
