package app

import (
	"context"
	"log"
	"sort"

	"classquest/internal/domain"
)

// RankingService derives leaderboards from the two score streams. Totals are
// recomputed from records on every call; nothing is cached, so rankings can
// never drift from the underlying event log. All reads are best-effort: a
// storage failure degrades to an empty result and is logged, it never crashes
// the caller.
type RankingService struct {
	students StudentRepository
	classes  ClassRepository
	scores   ScoreRepository
	history  HistoryRepository
}

func NewRankingService(students StudentRepository, classes ClassRepository, scores ScoreRepository, history HistoryRepository) *RankingService {
	return &RankingService{students: students, classes: classes, scores: scores, history: history}
}

// ClassRanking returns class members ordered by combined total, descending.
// Students with no records in a stream contribute zero for that stream, so
// the ranking always has one row per member. Ties keep roster order; the
// stable sort makes equal totals deterministic per run.
func (s *RankingService) ClassRanking(ctx context.Context, classID int) []domain.RankingEntry {
	students, err := s.students.ByClass(ctx, classID)
	if err != nil {
		log.Printf("class ranking %d: load students: %v", classID, err)
		return []domain.RankingEntry{}
	}
	if len(students) == 0 {
		return []domain.RankingEntry{}
	}

	ids := make([]string, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}

	quizTotals, err := s.scores.SumByStudent(ctx, domain.StreamQuiz, ids)
	if err != nil {
		log.Printf("class ranking %d: sum quiz scores: %v", classID, err)
		return []domain.RankingEntry{}
	}
	scenarioTotals, err := s.scores.SumByStudent(ctx, domain.StreamScenario, ids)
	if err != nil {
		log.Printf("class ranking %d: sum scenario scores: %v", classID, err)
		return []domain.RankingEntry{}
	}

	entries := make([]domain.RankingEntry, 0, len(students))
	for _, student := range students {
		entries = append(entries, domain.RankingEntry{
			StudentID: student.ID,
			FirstName: student.FirstName,
			LastName:  student.LastName,
			Total:     quizTotals[student.ID] + scenarioTotals[student.ID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	return entries
}

// PersonalScore returns a student's per-stream totals. It works for students
// without a class; a failing read degrades to zero totals.
func (s *RankingService) PersonalScore(ctx context.Context, studentID string) domain.PersonalScore {
	ids := []string{studentID}
	quizTotals, err := s.scores.SumByStudent(ctx, domain.StreamQuiz, ids)
	if err != nil {
		log.Printf("personal score %s: sum quiz scores: %v", studentID, err)
		return domain.PersonalScore{}
	}
	scenarioTotals, err := s.scores.SumByStudent(ctx, domain.StreamScenario, ids)
	if err != nil {
		log.Printf("personal score %s: sum scenario scores: %v", studentID, err)
		return domain.PersonalScore{}
	}
	return domain.PersonalScore{
		QuizTotal:     quizTotals[studentID],
		ScenarioTotal: scenarioTotals[studentID],
	}
}

// TeacherClassRanking orders a teacher's classes by the combined total of
// their members, descending. Same tie policy as ClassRanking.
func (s *RankingService) TeacherClassRanking(ctx context.Context, teacherID string) []domain.ClassStanding {
	classes, err := s.classes.ByTeacher(ctx, teacherID)
	if err != nil {
		log.Printf("teacher ranking %s: load classes: %v", teacherID, err)
		return []domain.ClassStanding{}
	}

	standings := make([]domain.ClassStanding, 0, len(classes))
	for _, class := range classes {
		total := 0
		for _, entry := range s.ClassRanking(ctx, class.ID) {
			total += entry.Total
		}
		standings = append(standings, domain.ClassStanding{Class: class, Total: total})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Total > standings[j].Total
	})
	return standings
}

// StudentHistory returns the student's completed activities ordered by
// timestamp for display. The store itself keeps no ordering promise.
func (s *RankingService) StudentHistory(ctx context.Context, studentID string) []domain.HistoryEntry {
	entries, err := s.history.ByStudent(ctx, studentID)
	if err != nil {
		log.Printf("history %s: %v", studentID, err)
		return []domain.HistoryEntry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	return entries
}
