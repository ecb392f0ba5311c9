package drill

import "time"

// AttemptRecord is one submitted answer. Records are values and are never
// modified after they are logged.
type AttemptRecord struct {
	Mode      Mode
	Item      int
	Word      string
	Submitted string
	Verdict   Verdict
	At        time.Time
}

// QuestionNumber returns the 1-based position of the item in the bank
func (r AttemptRecord) QuestionNumber() int {
	return r.Item + 1
}

// AttemptLog holds every attempt of the session, newest first
type AttemptLog struct {
	records []AttemptRecord
}

// Append adds a record in front of all earlier records
func (l *AttemptLog) Append(record AttemptRecord) {
	l.records = append(l.records, AttemptRecord{})
	copy(l.records[1:], l.records)
	l.records[0] = record
}

// Records returns a copy of the log, newest first
func (l *AttemptLog) Records() []AttemptRecord {
	records := make([]AttemptRecord, len(l.records))
	copy(records, l.records)
	return records
}

// Len returns the number of logged attempts
func (l *AttemptLog) Len() int {
	return len(l.records)
}
