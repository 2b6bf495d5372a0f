package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classquest/internal/domain"
)

// AttemptStore implements app.AttemptRepository.
// Keys:
//
//	attempt:{quizID}:{studentID}:start  RFC3339Nano start timestamp, SetNX
//	attempt:{quizID}:{studentID}:done   completion marker, SetNX
//
// Both conditional writes run server-side, so the start timestamp is recorded
// once and at most one submission per pair can claim the completion marker,
// with no coordination between handler processes.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func startKey(quizID int, studentID string) string {
	return fmt.Sprintf("attempt:%d:%s:start", quizID, studentID)
}

func doneKey(quizID int, studentID string) string {
	return fmt.Sprintf("attempt:%d:%s:done", quizID, studentID)
}

func (s *AttemptStore) StartIfAbsent(ctx context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error) {
	key := startKey(quizID, studentID)
	if _, err := s.client.SetNX(ctx, key, startedAt.Format(time.RFC3339Nano), 0).Result(); err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: setnx %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	attempt, _, err := s.Get(ctx, quizID, studentID)
	return attempt, err
}

func (s *AttemptStore) Get(ctx context.Context, quizID int, studentID string) (domain.Attempt, bool, error) {
	raw, err := s.client.Get(ctx, startKey(quizID, studentID)).Result()
	if err == redis.Nil {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("%w: get attempt: %v", domain.ErrStorageUnavailable, err)
	}
	startedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("parse start timestamp %q: %w", raw, err)
	}

	done, err := s.client.Exists(ctx, doneKey(quizID, studentID)).Result()
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("%w: check completion: %v", domain.ErrStorageUnavailable, err)
	}

	return domain.Attempt{
		QuizID:    quizID,
		StudentID: studentID,
		StartedAt: startedAt,
		Completed: done > 0,
	}, true, nil
}

func (s *AttemptStore) CompleteOnce(ctx context.Context, quizID int, studentID string, startedAt time.Time) (domain.Attempt, error) {
	claimed, err := s.client.SetNX(ctx, doneKey(quizID, studentID), startedAt.Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: claim completion: %v", domain.ErrStorageUnavailable, err)
	}
	if !claimed {
		return domain.Attempt{}, domain.ErrAlreadyCompleted
	}

	// Implicit start for submissions without a prior view; keeps any existing
	// start timestamp.
	if _, err := s.client.SetNX(ctx, startKey(quizID, studentID), startedAt.Format(time.RFC3339Nano), 0).Result(); err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: record start: %v", domain.ErrStorageUnavailable, err)
	}

	attempt, _, err := s.Get(ctx, quizID, studentID)
	return attempt, err
}
