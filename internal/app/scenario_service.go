package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"classquest/internal/domain"
)

// ScenarioRepository stores interactive scenarios.
type ScenarioRepository interface {
	Insert(ctx context.Context, scenario domain.Scenario) error
	Get(ctx context.Context, id int) (domain.Scenario, error)
}

// ScenarioTopics is the fixed catalog of debate topics scenarios can cover.
var ScenarioTopics = []string{
	"Climate change policy",
	"Gender equality",
	"Migrant rights",
	"Artificial intelligence in medicine",
	"Legalization of soft drugs",
	"NATO expansion",
	"Workplace safety",
}

var (
	ErrInvalidTopic         = errors.New("topic not in scenario catalog")
	ErrInvalidScenarioTitle = errors.New("scenario title must be 2-50 characters")
)

// ScenarioService manages scenarios and merges their externally produced
// points into the scoring streams exactly like quiz points.
type ScenarioService struct {
	counters  CounterRepository
	scenarios ScenarioRepository
	students  StudentRepository
	scores    ScoreRepository
	history   HistoryRepository
	events    *Broadcaster
	now       func() time.Time
}

func NewScenarioService(counters CounterRepository, scenarios ScenarioRepository, students StudentRepository, scores ScoreRepository, history HistoryRepository, events *Broadcaster) *ScenarioService {
	return &ScenarioService{
		counters:  counters,
		scenarios: scenarios,
		students:  students,
		scores:    scores,
		history:   history,
		events:    events,
		now:       time.Now,
	}
}

// NewScenarioServiceWithClock is test-only for deterministic timestamps.
func NewScenarioServiceWithClock(counters CounterRepository, scenarios ScenarioRepository, students StudentRepository, scores ScoreRepository, history HistoryRepository, events *Broadcaster, now func() time.Time) *ScenarioService {
	s := NewScenarioService(counters, scenarios, students, scores, history, events)
	s.now = now
	return s
}

// Create validates the scenario and stores it under an allocator-assigned
// identifier.
func (s *ScenarioService) Create(ctx context.Context, title, description, topic, mode string) (domain.Scenario, error) {
	if len(title) < 2 || len(title) > 50 {
		return domain.Scenario{}, ErrInvalidScenarioTitle
	}
	if len(description) < 2 || len(description) > 255 {
		return domain.Scenario{}, ErrInvalidDescription
	}
	if !validTopic(topic) {
		return domain.Scenario{}, ErrInvalidTopic
	}

	id, err := s.counters.Next(ctx, counterScenario)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("allocate scenario id: %w", err)
	}

	scenario := domain.Scenario{
		ID:          int(id),
		Title:       title,
		Description: description,
		Topic:       topic,
		Mode:        mode,
	}
	if err := s.scenarios.Insert(ctx, scenario); err != nil {
		return domain.Scenario{}, fmt.Errorf("insert scenario: %w", err)
	}
	return scenario, nil
}

func (s *ScenarioService) Get(ctx context.Context, id int) (domain.Scenario, error) {
	return s.scenarios.Get(ctx, id)
}

// RecordResult appends the points an external collaborator scored for the
// scenario, plus the matching history entry, as one logical unit. A failed
// history write after a successful score write surfaces as
// *domain.PartialWriteError.
func (s *ScenarioService) RecordResult(ctx context.Context, studentID string, scenarioID, points int) error {
	scenario, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return err
	}
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return err
	}

	record := domain.ScoreRecord{StudentID: studentID, Points: points, ActivityID: scenarioID}
	if err := s.scores.Append(ctx, domain.StreamScenario, record); err != nil {
		return fmt.Errorf("append scenario score: %w", err)
	}

	entry := domain.HistoryEntry{
		StudentID:   studentID,
		RecordedAt:  s.now(),
		Description: "Scenario: " + scenario.Title,
		Points:      points,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		pw := &domain.PartialWriteError{
			StudentID:  studentID,
			ActivityID: scenarioID,
			Stream:     domain.StreamScenario,
			At:         entry.RecordedAt,
			Err:        err,
		}
		log.Printf("history write failed after score write: %v", pw)
		return pw
	}

	if s.events != nil && student.ClassID != nil {
		s.events.Publish(*student.ClassID)
	}
	return nil
}

func validTopic(topic string) bool {
	for _, t := range ScenarioTopics {
		if t == topic {
			return true
		}
	}
	return false
}
