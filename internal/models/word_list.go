package models

import "time"

// WordList is a stored vocabulary set that a drill can be started from
type WordList struct {
	ID          int64
	Name        string
	Description string
	Language    string // BCP 47 tag used for speech, e.g. zh-TW
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Word is one entry of a word list
type Word struct {
	ID            int64
	ListID        int64
	Position      int
	WordText      string
	AudioFilename string
	CreatedAt     time.Time
}

// ListSummary extends WordList with its word count
type ListSummary struct {
	WordList
	WordCount int
}

// ListWithWords combines a word list with its words in position order
type ListWithWords struct {
	List  WordList
	Words []Word
}

// Texts returns the word texts in position order
func (l ListWithWords) Texts() []string {
	texts := make([]string, len(l.Words))
	for i, w := range l.Words {
		texts[i] = w.WordText
	}
	return texts
}
