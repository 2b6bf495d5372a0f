package app

import (
	"context"
	"errors"
	"fmt"

	"classquest/internal/domain"
)

// CounterRepository issues unique, monotonically increasing identifiers for a
// named sequence. Next must be a single atomic increment-and-read in the
// store; a read-then-write in the caller would hand the same ID to two
// concurrent requests. An unseen name starts its sequence at 1.
type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// StudentRepository stores students and their nullable class membership.
type StudentRepository interface {
	Register(ctx context.Context, student domain.Student) error
	Get(ctx context.Context, id string) (domain.Student, error)
	// ByClass returns class members sorted by last name, then first name.
	ByClass(ctx context.Context, classID int) ([]domain.Student, error)
	// Unassigned returns students of a school with no class yet.
	Unassigned(ctx context.Context, school string) ([]domain.Student, error)
	SearchByClass(ctx context.Context, classID int, idPrefix string) ([]domain.Student, error)
	// SetClass updates the class reference; nil unassigns.
	SetClass(ctx context.Context, studentID string, classID *int) error
}

// ClassRepository stores teacher-owned classes.
type ClassRepository interface {
	Insert(ctx context.Context, class domain.Class) error
	Get(ctx context.Context, id int) (domain.Class, error)
	ByTeacher(ctx context.Context, teacherID string) ([]domain.Class, error)
	Delete(ctx context.Context, id int) error
}

const (
	counterClass    = "class"
	counterScenario = "scenario"
	counterQuiz     = "quiz"
)

var (
	ErrInvalidClassName   = errors.New("class name must be 2-20 characters")
	ErrInvalidDescription = errors.New("description must be 2-255 characters")
)

// RosterService manages classes and student placement.
type RosterService struct {
	counters CounterRepository
	classes  ClassRepository
	students StudentRepository
}

func NewRosterService(counters CounterRepository, classes ClassRepository, students StudentRepository) *RosterService {
	return &RosterService{counters: counters, classes: classes, students: students}
}

// CreateClass validates the input, allocates the class identifier and stores
// the class. When the counter store is unreachable the request fails; an
// identifier is never fabricated.
func (s *RosterService) CreateClass(ctx context.Context, teacherID, name, description string) (domain.Class, error) {
	if len(name) < 2 || len(name) > 20 {
		return domain.Class{}, ErrInvalidClassName
	}
	if len(description) < 2 || len(description) > 255 {
		return domain.Class{}, ErrInvalidDescription
	}

	id, err := s.counters.Next(ctx, counterClass)
	if err != nil {
		return domain.Class{}, fmt.Errorf("allocate class id: %w", err)
	}

	class := domain.Class{
		ID:          int(id),
		Name:        name,
		Description: description,
		TeacherID:   teacherID,
	}
	if err := s.classes.Insert(ctx, class); err != nil {
		return domain.Class{}, fmt.Errorf("insert class: %w", err)
	}
	return class, nil
}

// AllocateClassID exposes raw identifier allocation for callers that assemble
// the class elsewhere.
func (s *RosterService) AllocateClassID(ctx context.Context) (int, error) {
	id, err := s.counters.Next(ctx, counterClass)
	if err != nil {
		return 0, fmt.Errorf("allocate class id: %w", err)
	}
	return int(id), nil
}

func (s *RosterService) RegisterStudent(ctx context.Context, student domain.Student) error {
	return s.students.Register(ctx, student)
}

func (s *RosterService) Class(ctx context.Context, classID int) (domain.Class, error) {
	return s.classes.Get(ctx, classID)
}

func (s *RosterService) TeacherClasses(ctx context.Context, teacherID string) ([]domain.Class, error) {
	return s.classes.ByTeacher(ctx, teacherID)
}

// AssignStudent places a student in a class. The class must exist.
func (s *RosterService) AssignStudent(ctx context.Context, studentID string, classID int) error {
	if _, err := s.classes.Get(ctx, classID); err != nil {
		return err
	}
	return s.students.SetClass(ctx, studentID, &classID)
}

// UnassignStudent nulls the student's class reference.
func (s *RosterService) UnassignStudent(ctx context.Context, studentID string) error {
	return s.students.SetClass(ctx, studentID, nil)
}

// DeleteClass removes the class and unassigns its members. Students are never
// cascade-deleted.
func (s *RosterService) DeleteClass(ctx context.Context, classID int) error {
	students, err := s.students.ByClass(ctx, classID)
	if err != nil {
		return fmt.Errorf("load class members: %w", err)
	}
	for _, student := range students {
		if err := s.students.SetClass(ctx, student.ID, nil); err != nil {
			return fmt.Errorf("unassign student %s: %w", student.ID, err)
		}
	}
	return s.classes.Delete(ctx, classID)
}

func (s *RosterService) ClassStudents(ctx context.Context, classID int) ([]domain.Student, error) {
	return s.students.ByClass(ctx, classID)
}

func (s *RosterService) UnassignedStudents(ctx context.Context, school string) ([]domain.Student, error) {
	return s.students.Unassigned(ctx, school)
}

// SearchClassStudents filters class members by identifier prefix, the lookup
// teachers use when placing or removing students.
func (s *RosterService) SearchClassStudents(ctx context.Context, classID int, idPrefix string) ([]domain.Student, error) {
	return s.students.SearchByClass(ctx, classID, idPrefix)
}
