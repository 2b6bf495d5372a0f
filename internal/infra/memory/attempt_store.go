package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"classquest/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository. The
// single mutex gives the same conditional-write semantics the redis
// implementation gets from SetNX.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func attemptKey(quizID int, studentID string) string {
	return fmt.Sprintf("%d:%s", quizID, studentID)
}

func (s *AttemptStore) StartIfAbsent(_ context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(quizID, studentID)
	if attempt, ok := s.attempts[key]; ok {
		return attempt, nil
	}
	attempt := domain.Attempt{QuizID: quizID, StudentID: studentID, StartedAt: startedAt}
	s.attempts[key] = attempt
	return attempt, nil
}

func (s *AttemptStore) Get(_ context.Context, quizID int, studentID string) (domain.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptKey(quizID, studentID)]
	return attempt, ok, nil
}

func (s *AttemptStore) CompleteOnce(_ context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(quizID, studentID)
	attempt, ok := s.attempts[key]
	if !ok {
		// Submission without a prior view: implicit start.
		attempt = domain.Attempt{QuizID: quizID, StudentID: studentID, StartedAt: startedAt}
	}
	if attempt.Completed {
		return domain.Attempt{}, domain.ErrAlreadyCompleted
	}
	attempt.Completed = true
	s.attempts[key] = attempt
	return attempt, nil
}
