package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"classquest/internal/domain"
)

// StudentStore is an in-memory implementation of app.StudentRepository.
type StudentStore struct {
	mu       sync.RWMutex
	students map[string]domain.Student
}

func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[string]domain.Student)}
}

func (s *StudentStore) Register(_ context.Context, student domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
	return nil
}

func (s *StudentStore) Get(_ context.Context, id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.students[id]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return student, nil
}

func (s *StudentStore) ByClass(_ context.Context, classID int) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []domain.Student
	for _, student := range s.students {
		if student.ClassID != nil && *student.ClassID == classID {
			members = append(members, student)
		}
	}
	sortByName(members)
	return members, nil
}

func (s *StudentStore) Unassigned(_ context.Context, school string) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unassigned []domain.Student
	for _, student := range s.students {
		if student.ClassID == nil && student.School == school {
			unassigned = append(unassigned, student)
		}
	}
	sortByName(unassigned)
	return unassigned, nil
}

func (s *StudentStore) SearchByClass(ctx context.Context, classID int, idPrefix string) ([]domain.Student, error) {
	members, err := s.ByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if idPrefix == "" {
		return members, nil
	}

	prefix := strings.ToUpper(idPrefix)
	var matched []domain.Student
	for _, student := range members {
		if strings.HasPrefix(strings.ToUpper(student.ID), prefix) {
			matched = append(matched, student)
		}
	}
	return matched, nil
}

func (s *StudentStore) SetClass(_ context.Context, studentID string, classID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.students[studentID]
	if !ok {
		return domain.ErrStudentNotFound
	}
	student.ClassID = classID
	s.students[studentID] = student
	return nil
}

func sortByName(students []domain.Student) {
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
}

// ClassStore is an in-memory implementation of app.ClassRepository.
type ClassStore struct {
	mu      sync.RWMutex
	classes map[int]domain.Class
}

func NewClassStore() *ClassStore {
	return &ClassStore{classes: make(map[int]domain.Class)}
}

func (s *ClassStore) Insert(_ context.Context, class domain.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[class.ID] = class
	return nil
}

func (s *ClassStore) Get(_ context.Context, id int) (domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, ok := s.classes[id]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	return class, nil
}

func (s *ClassStore) ByTeacher(_ context.Context, teacherID string) ([]domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []domain.Class
	for _, class := range s.classes {
		if class.TeacherID == teacherID {
			owned = append(owned, class)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned, nil
}

func (s *ClassStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[id]; !ok {
		return domain.ErrClassNotFound
	}
	delete(s.classes, id)
	return nil
}

// ScenarioStore is an in-memory implementation of app.ScenarioRepository.
type ScenarioStore struct {
	mu        sync.RWMutex
	scenarios map[int]domain.Scenario
}

func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{scenarios: make(map[int]domain.Scenario)}
}

func (s *ScenarioStore) Insert(_ context.Context, scenario domain.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[scenario.ID] = scenario
	return nil
}

func (s *ScenarioStore) Get(_ context.Context, id int) (domain.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scenario, ok := s.scenarios[id]
	if !ok {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	return scenario, nil
}
