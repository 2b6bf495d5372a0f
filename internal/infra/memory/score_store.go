package memory

import (
	"context"
	"sync"

	"classquest/internal/domain"
)

// ScoreStore keeps the two append-only score streams in memory.
type ScoreStore struct {
	mu      sync.RWMutex
	streams map[domain.Stream][]domain.ScoreRecord
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{streams: make(map[domain.Stream][]domain.ScoreRecord)}
}

func (s *ScoreStore) Append(_ context.Context, stream domain.Stream, rec domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[stream] = append(s.streams[stream], rec)
	return nil
}

func (s *ScoreStore) SumByStudent(_ context.Context, stream domain.Stream, studentIDs []string) (map[string]int, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int, len(studentIDs))
	for _, rec := range s.streams[stream] {
		if _, ok := wanted[rec.StudentID]; ok {
			sums[rec.StudentID] += rec.Points
		}
	}
	return sums, nil
}

func (s *ScoreStore) ByActivity(_ context.Context, stream domain.Stream, activityID int) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.ScoreRecord
	for _, rec := range s.streams[stream] {
		if rec.ActivityID == activityID {
			records = append(records, rec)
		}
	}
	return records, nil
}

// HistoryStore is the in-memory append-only activity log.
type HistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{entries: make(map[string][]domain.HistoryEntry)}
}

func (s *HistoryStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.StudentID] = append(s.entries[entry.StudentID], entry)
	return nil
}

func (s *HistoryStore) ByStudent(_ context.Context, studentID string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.HistoryEntry, len(s.entries[studentID]))
	copy(entries, s.entries[studentID])
	return entries, nil
}
