package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classquest/internal/domain"
)

// QuestionGenerator produces question drafts for a topic. Implementations may
// call an external model; callers wrap them so an outage degrades to a
// placeholder set instead of failing the request.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string, count, arity int) ([]domain.QuestionDraft, error)
}

const (
	MinQuestions = 5
	MaxQuestions = 20
)

var (
	ErrInvalidQuestionCount = errors.New("question count must be between 5 and 20")
	ErrInvalidArity         = errors.New("answer arity must be 3 or 4")
	ErrInvalidTitle         = errors.New("quiz title must be 2-255 characters")
	ErrInvalidDuration      = errors.New("quiz duration must be positive")
)

// QuizService creates quizzes and serves the teacher-facing views over them.
type QuizService struct {
	counters  CounterRepository
	catalog   QuizCatalog
	students  StudentRepository
	scores    ScoreRepository
	generator QuestionGenerator
	now       func() time.Time
}

func NewQuizService(counters CounterRepository, catalog QuizCatalog, students StudentRepository, scores ScoreRepository, generator QuestionGenerator) *QuizService {
	return &QuizService{
		counters:  counters,
		catalog:   catalog,
		students:  students,
		scores:    scores,
		generator: generator,
		now:       time.Now,
	}
}

// Create generates the questions and stores the quiz. Titles are globally
// unique; question IDs are sequential within the quiz. Generated option text
// is normalized before storage so scoring stays a byte-exact comparison.
func (s *QuizService) Create(ctx context.Context, classID int, title, topic string, count, arity, durationMinutes int) (domain.Quiz, error) {
	if len(title) < 2 || len(title) > 255 {
		return domain.Quiz{}, ErrInvalidTitle
	}
	if count < MinQuestions || count > MaxQuestions {
		return domain.Quiz{}, ErrInvalidQuestionCount
	}
	if arity != 3 && arity != 4 {
		return domain.Quiz{}, ErrInvalidArity
	}
	if durationMinutes <= 0 {
		return domain.Quiz{}, ErrInvalidDuration
	}

	taken, err := s.catalog.TitleExists(ctx, title)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("check title: %w", err)
	}
	if taken {
		return domain.Quiz{}, domain.ErrDuplicateTitle
	}

	drafts, err := s.generator.Generate(ctx, topic, count, arity)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate questions: %w", err)
	}

	id, err := s.counters.Next(ctx, counterQuiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("allocate quiz id: %w", err)
	}

	questions := make([]domain.Question, 0, len(drafts))
	for i, draft := range drafts {
		questions = append(questions, domain.Question{
			ID:            i + 1,
			Text:          draft.Text,
			Options:       normalizeOptions(draft.Options),
			CorrectAnswer: StripOptionLabel(draft.CorrectAnswer),
		})
	}

	quiz := domain.Quiz{
		ID:              int(id),
		Title:           title,
		Topic:           topic,
		ClassID:         classID,
		Questions:       questions,
		Arity:           arity,
		DurationMinutes: durationMinutes,
		CreatedAt:       s.now(),
	}
	if err := s.catalog.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizService) Quiz(ctx context.Context, quizID int) (domain.Quiz, error) {
	return s.catalog.GetQuiz(ctx, quizID)
}

func (s *QuizService) ClassQuizzes(ctx context.Context, classID int) ([]domain.Quiz, error) {
	return s.catalog.QuizzesByClass(ctx, classID)
}

// LatestForClass returns the most recently created quiz of the class, the one
// the student dashboard links to.
func (s *QuizService) LatestForClass(ctx context.Context, classID int) (domain.Quiz, error) {
	return s.catalog.LatestForClass(ctx, classID)
}

// Results builds the teacher's results view: one row per class member, with
// the recorded percentage or an explicit not-attempted marker.
func (s *QuizService) Results(ctx context.Context, quizID int) ([]domain.QuizOutcome, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ByClass(ctx, quiz.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load class members: %w", err)
	}

	records, err := s.scores.ByActivity(ctx, domain.StreamQuiz, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz records: %w", err)
	}
	byStudent := make(map[string]domain.ScoreRecord, len(records))
	for _, record := range records {
		byStudent[record.StudentID] = record
	}

	outcomes := make([]domain.QuizOutcome, 0, len(students))
	for _, student := range students {
		outcome := domain.QuizOutcome{
			StudentID: student.ID,
			FirstName: student.FirstName,
			LastName:  student.LastName,
		}
		if record, ok := byStudent[student.ID]; ok {
			outcome.Attempted = true
			outcome.Percentage = record.Points
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// StripOptionLabel removes a leading "A) " style label so stored answers stay
// canonical regardless of how the generator formatted them.
func StripOptionLabel(option string) string {
	if len(option) >= 3 && option[0] >= 'A' && option[0] <= 'Z' && option[1] == ')' && option[2] == ' ' {
		return option[3:]
	}
	return option
}

func normalizeOptions(options []string) []string {
	normalized := make([]string, len(options))
	for i, option := range options {
		normalized[i] = StripOptionLabel(option)
	}
	return normalized
}
