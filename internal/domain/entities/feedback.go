package entities

import "time"

// FeedbackLevel is the scope a behavioural feedback thread is attached to.
type FeedbackLevel string

const (
	FeedbackLevelProfile    FeedbackLevel = "profile"
	FeedbackLevelVisit      FeedbackLevel = "visit"
	FeedbackLevelInstrument FeedbackLevel = "instrument"
)

// Valid reports whether l is a known level.
func (l FeedbackLevel) Valid() bool {
	switch l {
	case FeedbackLevelProfile, FeedbackLevelVisit, FeedbackLevelInstrument:
		return true
	}
	return false
}

// Flag is a 'Y'/'N' column value.
type Flag string

const (
	FlagYes Flag = "Y"
	FlagNo  Flag = "N"
)

// ThreadStatus is the lifecycle status of a feedback thread.
type ThreadStatus string

const (
	ThreadStatusOpened   ThreadStatus = "opened"
	ThreadStatusAnswered ThreadStatus = "answered"
	ThreadStatusClosed   ThreadStatus = "closed"
	ThreadStatusComment  ThreadStatus = "comment"
)

// FeedbackThread is a persisted sequence of comment entries about a candidate.
type FeedbackThread struct {
	ID        string        `json:"feedbackID" db:"feedback_id"`
	CandID    int64         `json:"candID" db:"cand_id"`
	Level     FeedbackLevel `json:"level" db:"feedback_level"`
	InputType string        `json:"type" db:"feedback_type"`
	Public    Flag          `json:"public" db:"public"`
	Status    ThreadStatus  `json:"status" db:"status"`
	Active    Flag          `json:"active" db:"active"`
	CreatedAt time.Time     `json:"date" db:"created_at"`
}

// FeedbackEntry is one comment within a thread, as returned to the submitter.
type FeedbackEntry struct {
	ID         string        `json:"entryID" db:"entry_id"`
	FeedbackID string        `json:"feedbackID" db:"feedback_id"`
	CandID     int64         `json:"candID"`
	Level      FeedbackLevel `json:"level"`
	InputType  string        `json:"type"`
	Comment    string        `json:"comment" db:"comment"`
	Public     Flag          `json:"public"`
	Status     ThreadStatus  `json:"status"`
	CreatedAt  time.Time     `json:"date" db:"created_at"`
}

// NewThread is the input for creating a thread with its first entry.
type NewThread struct {
	CandID    int64
	Level     FeedbackLevel
	InputType string
	Comment   string
	Public    Flag
}
