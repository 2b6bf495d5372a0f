package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"classquest/internal/domain"
)

// ScoreStore implements app.ScoreRepository on append-only redis lists.
// Keys:
//
//	scores:{stream}:student:{studentID}   records by student (for sums)
//	scores:{stream}:activity:{activityID} records by activity (for results)
//
// A record lands on both lists inside one MULTI/EXEC pipeline. Sums are
// computed on read by walking the student list; nothing caches a running
// total, so totals can never drift from the record log.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func studentScoresKey(stream domain.Stream, studentID string) string {
	return fmt.Sprintf("scores:%s:student:%s", stream, studentID)
}

func activityScoresKey(stream domain.Stream, activityID int) string {
	return fmt.Sprintf("scores:%s:activity:%d", stream, activityID)
}

func (s *ScoreStore) Append(ctx context.Context, stream domain.Stream, rec domain.ScoreRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, studentScoresKey(stream, rec.StudentID), payload)
	pipe.RPush(ctx, activityScoresKey(stream, rec.ActivityID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: append score record: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *ScoreStore) SumByStudent(ctx context.Context, stream domain.Stream, studentIDs []string) (map[string]int, error) {
	pipe := s.client.Pipeline()
	ranges := make([]*redis.StringSliceCmd, len(studentIDs))
	for i, id := range studentIDs {
		ranges[i] = pipe.LRange(ctx, studentScoresKey(stream, id), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: read score records: %v", domain.ErrStorageUnavailable, err)
	}

	sums := make(map[string]int, len(studentIDs))
	for i, id := range studentIDs {
		for _, raw := range ranges[i].Val() {
			var rec domain.ScoreRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return nil, fmt.Errorf("unmarshal score record: %w", err)
			}
			sums[id] += rec.Points
		}
	}
	return sums, nil
}

func (s *ScoreStore) ByActivity(ctx context.Context, stream domain.Stream, activityID int) ([]domain.ScoreRecord, error) {
	raws, err := s.client.LRange(ctx, activityScoresKey(stream, activityID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read activity records: %v", domain.ErrStorageUnavailable, err)
	}

	records := make([]domain.ScoreRecord, 0, len(raws))
	for _, raw := range raws {
		var rec domain.ScoreRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal score record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// HistoryStore implements app.HistoryRepository on one redis list per student.
type HistoryStore struct {
	client *redis.Client
}

func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func historyKey(studentID string) string {
	return "history:" + studentID
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if err := s.client.RPush(ctx, historyKey(entry.StudentID), payload).Err(); err != nil {
		return fmt.Errorf("%w: append history entry: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *HistoryStore) ByStudent(ctx context.Context, studentID string) ([]domain.HistoryEntry, error) {
	raws, err := s.client.LRange(ctx, historyKey(studentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", domain.ErrStorageUnavailable, err)
	}

	entries := make([]domain.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
