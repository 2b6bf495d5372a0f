package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"classquest/internal/domain"
)

// QuizCatalog stores quiz content (questions included).
type QuizCatalog interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error)
	QuizzesByClass(ctx context.Context, classID int) ([]domain.Quiz, error)
	LatestForClass(ctx context.Context, classID int) (domain.Quiz, error)
	TitleExists(ctx context.Context, title string) (bool, error)
}

// AttemptRepository tracks (quiz, student) attempts. Both StartIfAbsent and
// CompleteOnce are conditional storage writes: concurrent handlers share no
// memory, so the exactly-once guarantees live here, not in a process lock.
type AttemptRepository interface {
	// StartIfAbsent records startedAt for the pair unless an attempt already
	// exists, in which case the stored attempt is returned unchanged.
	StartIfAbsent(ctx context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error)
	Get(ctx context.Context, quizID int, studentID string) (domain.Attempt, bool, error)
	// CompleteOnce atomically marks the pair completed. A second completion
	// returns domain.ErrAlreadyCompleted. When no attempt exists yet the pair
	// is created with startedAt (submission without a prior view).
	CompleteOnce(ctx context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error)
}

// ScoreRepository holds the two append-only score streams. Records are never
// mutated; totals are grouped sums computed on read.
type ScoreRepository interface {
	Append(ctx context.Context, stream domain.Stream, rec domain.ScoreRecord) error
	SumByStudent(ctx context.Context, stream domain.Stream, studentIDs []string) (map[string]int, error)
	ByActivity(ctx context.Context, stream domain.Stream, activityID int) ([]domain.ScoreRecord, error)
}

// HistoryRepository is the append-only activity log used for display.
type HistoryRepository interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	ByStudent(ctx context.Context, studentID string) ([]domain.HistoryEntry, error)
}

// AttemptService governs the quiz attempt lifecycle:
// NotStarted -> InProgress -> {Completed, Expired}.
type AttemptService struct {
	catalog  QuizCatalog
	attempts AttemptRepository
	scores   ScoreRepository
	history  HistoryRepository
	events   *Broadcaster
	now      func() time.Time
}

func NewAttemptService(catalog QuizCatalog, attempts AttemptRepository, scores ScoreRepository, history HistoryRepository, events *Broadcaster) *AttemptService {
	return &AttemptService{
		catalog:  catalog,
		attempts: attempts,
		scores:   scores,
		history:  history,
		events:   events,
		now:      time.Now,
	}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(catalog QuizCatalog, attempts AttemptRepository, scores ScoreRepository, history HistoryRepository, events *Broadcaster, now func() time.Time) *AttemptService {
	s := NewAttemptService(catalog, attempts, scores, history, events)
	s.now = now
	return s
}

// Start opens (or resumes) an attempt and returns it with the remaining
// seconds. A first request records the start timestamp; repeating the request
// keeps the original start, it never restarts the clock.
func (s *AttemptService) Start(ctx context.Context, quizID int, studentID string) (domain.Attempt, int, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, 0, err
	}

	attempt, err := s.attempts.StartIfAbsent(ctx, quizID, studentID, s.now())
	if err != nil {
		return domain.Attempt{}, 0, fmt.Errorf("start attempt: %w", err)
	}
	if attempt.Completed {
		return domain.Attempt{}, 0, domain.ErrAlreadyCompleted
	}
	return attempt, remainingSeconds(quiz, attempt, s.now()), nil
}

// Remaining reports the seconds left on the attempt, clamped at zero. The
// value is computed freshly from the stored start on every call. A pair with
// no attempt yet has the full duration available.
func (s *AttemptService) Remaining(ctx context.Context, quizID int, studentID string) (int, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	attempt, ok, err := s.attempts.Get(ctx, quizID, studentID)
	if err != nil {
		return 0, fmt.Errorf("load attempt: %w", err)
	}
	if !ok {
		return quiz.DurationMinutes * 60, nil
	}
	if attempt.Completed {
		return 0, nil
	}
	return remainingSeconds(quiz, attempt, s.now()), nil
}

// State derives the attempt state lazily. Expired is observable only; nothing
// fires a transition when the deadline passes.
func (s *AttemptService) State(ctx context.Context, quizID int, studentID string) (domain.AttemptState, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	attempt, ok, err := s.attempts.Get(ctx, quizID, studentID)
	if err != nil {
		return "", fmt.Errorf("load attempt: %w", err)
	}
	switch {
	case !ok:
		return domain.AttemptNotStarted, nil
	case attempt.Completed:
		return domain.AttemptCompleted, nil
	case remainingSeconds(quiz, attempt, s.now()) == 0:
		return domain.AttemptExpired, nil
	default:
		return domain.AttemptInProgress, nil
	}
}

// Submit scores the answers and completes the attempt. Submissions without a
// prior start are accepted (implicit NotStarted -> Completed), and elapsed
// time is not checked here: the form is disabled client-side after expiry, the
// engine only guarantees at most one completion per pair. On success one quiz
// score record and one history entry are written as a logical unit; if the
// second write fails the error is a *domain.PartialWriteError.
func (s *AttemptService) Submit(ctx context.Context, quizID int, studentID string, answers map[int]string) (domain.SubmissionResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	percentage, correct, total, err := score(answers, quiz.Questions)
	if err != nil {
		log.Printf("scoring quiz %d for student %s: %v", quizID, studentID, err)
		return domain.SubmissionResult{}, err
	}

	if _, err := s.attempts.CompleteOnce(ctx, quizID, studentID, s.now()); err != nil {
		return domain.SubmissionResult{}, err
	}

	record := domain.ScoreRecord{StudentID: studentID, Points: percentage, ActivityID: quizID}
	if err := s.scores.Append(ctx, domain.StreamQuiz, record); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("append quiz score: %w", err)
	}

	entry := domain.HistoryEntry{
		StudentID:   studentID,
		RecordedAt:  s.now(),
		Description: "Quiz: " + quiz.Title,
		Points:      percentage,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		pw := &domain.PartialWriteError{
			StudentID:  studentID,
			ActivityID: quizID,
			Stream:     domain.StreamQuiz,
			At:         entry.RecordedAt,
			Err:        err,
		}
		log.Printf("history write failed after score write: %v", pw)
		return domain.SubmissionResult{}, pw
	}

	if s.events != nil {
		s.events.Publish(quiz.ClassID)
	}
	return domain.SubmissionResult{QuizID: quizID, Percentage: percentage, Correct: correct, Total: total}, nil
}

func remainingSeconds(quiz domain.Quiz, attempt domain.Attempt, now time.Time) int {
	elapsed := int(now.Sub(attempt.StartedAt).Seconds())
	remaining := quiz.DurationMinutes*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// score compares submitted answers against the stored correct values.
// Comparison is byte-exact: option text is normalized before storage, not
// here. Unanswered questions count as incorrect.
func score(answers map[int]string, questions []domain.Question) (percentage, correct, total int, err error) {
	if len(questions) == 0 {
		return 0, 0, 0, domain.ErrEmptyQuestionSet
	}
	for _, question := range questions {
		if submitted, ok := answers[question.ID]; ok && submitted == question.CorrectAnswer {
			correct++
		}
	}
	total = len(questions)
	return 100 * correct / total, correct, total, nil
}
