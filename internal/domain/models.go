package domain

import "time"

// Student is a learner registered on the platform. The ID is the
// fiscal-code-like identifier students log in with. ClassID is nil until a
// teacher places the student in a class.
type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	School    string `json:"school"`
	ClassID   *int   `json:"classId,omitempty"`
}

// Class is a teacher-owned group of students. The ID is allocated once from
// the counter store and never changes.
type Class struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TeacherID   string `json:"teacherId"`
}

// Question is an MCQ question with a single correct answer. Immutable once
// created; CorrectAnswer holds the canonical option text that submissions are
// compared against byte for byte.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// QuestionDraft is the shape produced by the question-generation collaborator
// before IDs are assigned.
type QuestionDraft struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Quiz is a timed MCQ activity assigned to a class.
type Quiz struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Topic           string     `json:"topic"`
	ClassID         int        `json:"classId"`
	Questions       []Question `json:"questions"`
	Arity           int        `json:"arity"` // options per question, 3 or 4
	DurationMinutes int        `json:"durationMinutes"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// AttemptState describes a student's relationship to one quiz.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
	AttemptExpired    AttemptState = "expired"
)

// Attempt tracks one (quiz, student) pair. At most one attempt per pair may
// reach Completed.
type Attempt struct {
	QuizID    int       `json:"quizId"`
	StudentID string    `json:"studentId"`
	StartedAt time.Time `json:"startedAt"`
	Completed bool      `json:"completed"`
}

// Deadline is the instant after which the attempt counts as expired, derived
// from the stored start, never from the wall clock at query time.
func (a Attempt) Deadline(durationMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// Stream names one of the two independently accumulated score streams.
type Stream string

const (
	StreamQuiz     Stream = "quiz"
	StreamScenario Stream = "scenario"
)

// ScoreRecord is an append-only scoring event. Totals are always derived by
// summing records, never stored.
type ScoreRecord struct {
	StudentID  string `json:"studentId"`
	Points     int    `json:"points"`
	ActivityID int    `json:"activityId"`
}

// HistoryEntry is one completed activity in a student's chronological record.
// Used for display only; rankings recompute from score records.
type HistoryEntry struct {
	StudentID   string    `json:"studentId"`
	RecordedAt  time.Time `json:"recordedAt"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
}

// SubmissionResult summarizes a scored quiz submission.
type SubmissionResult struct {
	QuizID     int `json:"quizId"`
	Percentage int `json:"percentage"`
	Correct    int `json:"correct"`
	Total      int `json:"total"`
}

// RankingEntry is one row of a class leaderboard.
type RankingEntry struct {
	StudentID string `json:"studentId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Total     int    `json:"total"`
}

// PersonalScore is a student's per-stream totals, independent of class
// membership.
type PersonalScore struct {
	QuizTotal     int `json:"quizTotal"`
	ScenarioTotal int `json:"scenarioTotal"`
}

// Combined is the student's overall total.
func (p PersonalScore) Combined() int { return p.QuizTotal + p.ScenarioTotal }

// ClassStanding is one row of a teacher's class leaderboard.
type ClassStanding struct {
	Class Class `json:"class"`
	Total int   `json:"total"`
}

// QuizOutcome is a per-student result line for the teacher's results view.
// Attempted is false when the student never completed the quiz.
type QuizOutcome struct {
	StudentID  string `json:"studentId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Attempted  bool   `json:"attempted"`
	Percentage int    `json:"percentage"`
}

// Scenario is a non-quiz scored activity. Points are produced by an external
// collaborator and merged into totals exactly like quiz points.
type Scenario struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	Mode        string `json:"mode"`
}
