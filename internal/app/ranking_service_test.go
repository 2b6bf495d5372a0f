package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"classquest/internal/app"
	"classquest/internal/domain"
	"classquest/internal/infra/memory"
)

func intPtr(v int) *int { return &v }

func seedClass(t *testing.T, students *memory.StudentStore, classes *memory.ClassStore) {
	t.Helper()
	ctx := context.Background()
	if err := classes.Insert(ctx, domain.Class{ID: 7, Name: "3B", Description: "Third year", TeacherID: "T1"}); err != nil {
		t.Fatalf("insert class: %v", err)
	}
	for _, s := range []domain.Student{
		{ID: "s1", FirstName: "Anna", LastName: "Bianchi", ClassID: intPtr(7)},
		{ID: "s2", FirstName: "Luca", LastName: "Rossi", ClassID: intPtr(7)},
		{ID: "s3", FirstName: "Sara", LastName: "Verdi", ClassID: intPtr(7)},
	} {
		if err := students.Register(ctx, s); err != nil {
			t.Fatalf("register %s: %v", s.ID, err)
		}
	}
}

func TestClassRankingMergesBothStreams(t *testing.T) {
	ctx := context.Background()
	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	scores := memory.NewScoreStore()
	seedClass(t, students, classes)

	service := app.NewRankingService(students, classes, scores, memory.NewHistoryStore())

	records := []struct {
		stream domain.Stream
		rec    domain.ScoreRecord
	}{
		{domain.StreamQuiz, domain.ScoreRecord{StudentID: "s1", Points: 75, ActivityID: 1}},
		{domain.StreamQuiz, domain.ScoreRecord{StudentID: "s2", Points: 50, ActivityID: 1}},
		{domain.StreamScenario, domain.ScoreRecord{StudentID: "s2", Points: 60, ActivityID: 2}},
		{domain.StreamScenario, domain.ScoreRecord{StudentID: "s3", Points: 20, ActivityID: 2}},
	}
	classTotal := 0
	for _, r := range records {
		if err := scores.Append(ctx, r.stream, r.rec); err != nil {
			t.Fatalf("append: %v", err)
		}
		classTotal += r.rec.Points
	}

	ranking := service.ClassRanking(ctx, 7)
	if len(ranking) != 3 {
		t.Fatalf("expected one row per member, got %d", len(ranking))
	}
	if ranking[0].StudentID != "s2" || ranking[0].Total != 110 {
		t.Fatalf("expected s2 leading with 110, got %+v", ranking[0])
	}
	if ranking[1].StudentID != "s1" || ranking[1].Total != 75 {
		t.Fatalf("expected s1 second with 75, got %+v", ranking[1])
	}

	// The ranking is strictly derived: its totals must add up to the sum of
	// every record belonging to the class.
	sum := 0
	for _, entry := range ranking {
		sum += entry.Total
	}
	if sum != classTotal {
		t.Fatalf("derived totals %d diverge from record sum %d", sum, classTotal)
	}
}

func TestClassRankingKeepsTies(t *testing.T) {
	ctx := context.Background()
	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	scores := memory.NewScoreStore()
	seedClass(t, students, classes)

	service := app.NewRankingService(students, classes, scores, memory.NewHistoryStore())

	for _, id := range []string{"s1", "s2"} {
		if err := scores.Append(ctx, domain.StreamQuiz, domain.ScoreRecord{StudentID: id, Points: 80, ActivityID: 1}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	ranking := service.ClassRanking(ctx, 7)
	if len(ranking) != 3 {
		t.Fatalf("tie must not drop students, got %d rows", len(ranking))
	}
	if ranking[0].Total != 80 || ranking[1].Total != 80 {
		t.Fatalf("expected tied 80s on top, got %+v", ranking[:2])
	}
	// Stable sort keeps roster order (Bianchi before Rossi) for equal totals.
	if ranking[0].StudentID != "s1" || ranking[1].StudentID != "s2" {
		t.Fatalf("expected roster order for ties, got %s then %s", ranking[0].StudentID, ranking[1].StudentID)
	}
}

func TestPersonalScoreWithoutClass(t *testing.T) {
	ctx := context.Background()
	students := memory.NewStudentStore()
	scores := memory.NewScoreStore()
	if err := students.Register(ctx, domain.Student{ID: "free", FirstName: "No", LastName: "Class"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := scores.Append(ctx, domain.StreamQuiz, domain.ScoreRecord{StudentID: "free", Points: 40, ActivityID: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := scores.Append(ctx, domain.StreamScenario, domain.ScoreRecord{StudentID: "free", Points: 15, ActivityID: 9}); err != nil {
		t.Fatalf("append: %v", err)
	}

	service := app.NewRankingService(students, memory.NewClassStore(), scores, memory.NewHistoryStore())
	score := service.PersonalScore(ctx, "free")
	if score.QuizTotal != 40 || score.ScenarioTotal != 15 || score.Combined() != 55 {
		t.Fatalf("unexpected personal score %+v", score)
	}
}

func TestTeacherClassRankingOrdersByCombinedTotal(t *testing.T) {
	ctx := context.Background()
	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	scores := memory.NewScoreStore()

	for _, c := range []domain.Class{
		{ID: 1, Name: "1A", Description: "First year", TeacherID: "T1"},
		{ID: 2, Name: "2A", Description: "Second year", TeacherID: "T1"},
		{ID: 3, Name: "1C", Description: "Other teacher", TeacherID: "T2"},
	} {
		if err := classes.Insert(ctx, c); err != nil {
			t.Fatalf("insert class: %v", err)
		}
	}
	for _, s := range []domain.Student{
		{ID: "a", LastName: "A", ClassID: intPtr(1)},
		{ID: "b", LastName: "B", ClassID: intPtr(2)},
	} {
		if err := students.Register(ctx, s); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := scores.Append(ctx, domain.StreamQuiz, domain.ScoreRecord{StudentID: "a", Points: 30, ActivityID: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := scores.Append(ctx, domain.StreamScenario, domain.ScoreRecord{StudentID: "b", Points: 90, ActivityID: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}

	service := app.NewRankingService(students, classes, scores, memory.NewHistoryStore())
	standings := service.TeacherClassRanking(ctx, "T1")
	if len(standings) != 2 {
		t.Fatalf("expected 2 classes for T1, got %d", len(standings))
	}
	if standings[0].Class.ID != 2 || standings[0].Total != 90 {
		t.Fatalf("expected class 2 with 90 on top, got %+v", standings[0])
	}
	if standings[1].Class.ID != 1 || standings[1].Total != 30 {
		t.Fatalf("expected class 1 with 30 second, got %+v", standings[1])
	}
}

func TestRankingDegradesToEmptyOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	seedClass(t, students, classes)

	service := app.NewRankingService(students, classes, failingScores{}, memory.NewHistoryStore())
	if ranking := service.ClassRanking(ctx, 7); len(ranking) != 0 {
		t.Fatalf("expected empty ranking on storage failure, got %d rows", len(ranking))
	}
	if score := service.PersonalScore(ctx, "s1"); score.Combined() != 0 {
		t.Fatalf("expected zero personal score on storage failure, got %+v", score)
	}
}

func TestStudentHistorySortedForDisplay(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryStore()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		if err := history.Append(ctx, domain.HistoryEntry{
			StudentID:   "s1",
			RecordedAt:  base.Add(offset),
			Description: "Quiz: something",
			Points:      10,
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	service := app.NewRankingService(memory.NewStudentStore(), memory.NewClassStore(), memory.NewScoreStore(), history)
	entries := service.StudentHistory(ctx, "s1")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].RecordedAt.Before(entries[i-1].RecordedAt) {
			t.Fatalf("history not sorted: %v before %v", entries[i].RecordedAt, entries[i-1].RecordedAt)
		}
	}
}

type failingScores struct{}

func (failingScores) Append(context.Context, domain.Stream, domain.ScoreRecord) error {
	return errors.New("score store down")
}

func (failingScores) SumByStudent(context.Context, domain.Stream, []string) (map[string]int, error) {
	return nil, errors.New("score store down")
}

func (failingScores) ByActivity(context.Context, domain.Stream, int) ([]domain.ScoreRecord, error) {
	return nil, errors.New("score store down")
}
