package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuizNotFound indicates the requested quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrClassNotFound indicates the requested class does not exist.
	ErrClassNotFound = errors.New("class not found")
	// ErrStudentNotFound indicates the requested student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrScenarioNotFound indicates the requested scenario does not exist.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrAlreadyCompleted rejects a second submission for a (quiz, student)
	// pair that already reached a completed attempt.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrEmptyQuestionSet flags a scoring call with zero questions; scoring
	// must fail loudly instead of producing a silent 0.
	ErrEmptyQuestionSet = errors.New("empty question set")
	// ErrDuplicateTitle rejects a quiz title that is already taken.
	ErrDuplicateTitle = errors.New("quiz title already exists")
	// ErrStorageUnavailable wraps transient storage failures. Mutating callers
	// surface it; aggregation readers degrade to empty results.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PartialWriteError reports that only one half of the score-plus-history
// logical unit was persisted. It carries enough context for manual
// reconciliation; there is no automatic compensation.
type PartialWriteError struct {
	StudentID  string
	ActivityID int
	Stream     Stream
	At         time.Time
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write for student %s activity %d (%s) at %s: %v",
		e.StudentID, e.ActivityID, e.Stream, e.At.Format(time.RFC3339), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
