package drill

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyBank     = errors.New("word bank has no words")
	ErrBlankWord     = errors.New("word bank contains a blank word")
	ErrDuplicateWord = errors.New("word bank contains a duplicate word")
)

// WordBank is the ordered, immutable vocabulary set for a session
type WordBank struct {
	words []string
}

// NewWordBank creates a word bank from the given words, keeping their order
func NewWordBank(words []string) (*WordBank, error) {
	if len(words) == 0 {
		return nil, ErrEmptyBank
	}

	seen := make(map[string]int, len(words))
	for i, word := range words {
		if strings.TrimSpace(word) == "" {
			return nil, fmt.Errorf("%w at position %d", ErrBlankWord, i+1)
		}
		if first, exists := seen[word]; exists {
			return nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateWord, word, first+1, i+1)
		}
		seen[word] = i
	}

	copied := make([]string, len(words))
	copy(copied, words)
	return &WordBank{words: copied}, nil
}

// Get returns the word at index. Indices come from the bank itself, so an
// out-of-range index is a caller bug and panics.
func (b *WordBank) Get(index int) string {
	if index < 0 || index >= len(b.words) {
		panic(fmt.Sprintf("drill: word index %d out of range [0, %d)", index, len(b.words)))
	}
	return b.words[index]
}

// Size returns the number of words in the bank
func (b *WordBank) Size() int {
	return len(b.words)
}

// Words returns a copy of the words in bank order
func (b *WordBank) Words() []string {
	words := make([]string, len(b.words))
	copy(words, b.words)
	return words
}
