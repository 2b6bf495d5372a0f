package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"classquest/internal/app"
	"classquest/internal/domain"
	"classquest/internal/generator"
	"classquest/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	counters := memory.NewCounterStore()
	catalog := memory.NewCatalog()
	attempts := memory.NewAttemptStore()
	scores := memory.NewScoreStore()
	history := memory.NewHistoryStore()
	students := memory.NewStudentStore()
	classes := memory.NewClassStore()
	scenarios := memory.NewScenarioStore()
	events := app.NewBroadcaster()

	api := NewAPI(
		app.NewAttemptService(catalog, attempts, scores, history, events),
		app.NewQuizService(counters, catalog, students, scores, generator.NewFallback(nil)),
		app.NewRankingService(students, classes, scores, history),
		app.NewRosterService(counters, classes, students),
		app.NewScenarioService(counters, scenarios, students, scores, history, events),
	)

	mux := http.NewServeMux()
	api.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)

	var class domain.Class
	if status := doJSON(t, http.MethodPost, server.URL+"/classes", map[string]string{
		"teacherId":   "t1",
		"name":        "3B",
		"description": "third year, section B",
	}, &class); status != http.StatusCreated {
		t.Fatalf("create class: status %d", status)
	}
	if class.ID != 1 {
		t.Fatalf("expected class id 1, got %d", class.ID)
	}

	if status := doJSON(t, http.MethodPost, server.URL+"/students", domain.Student{
		ID: "s1", FirstName: "Anna", LastName: "Bianchi", School: "Liceo Nord",
	}, nil); status != http.StatusCreated {
		t.Fatalf("register student: status %d", status)
	}
	if status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/classes/%d/students", server.URL, class.ID), map[string]string{
		"studentId": "s1",
	}, nil); status != http.StatusNoContent {
		t.Fatalf("assign student: status %d", status)
	}

	var quiz domain.Quiz
	if status := doJSON(t, http.MethodPost, server.URL+"/quizzes", map[string]any{
		"classId":         class.ID,
		"title":           "Roman Empire",
		"topic":           "History",
		"questionCount":   5,
		"arity":           4,
		"durationMinutes": 30,
	}, &quiz); status != http.StatusCreated {
		t.Fatalf("create quiz: status %d", status)
	}

	// The student-facing view hides correct answers.
	var view struct {
		Questions []struct {
			ID      int      `json:"id"`
			Text    string   `json:"text"`
			Options []string `json:"options"`
		} `json:"questions"`
	}
	if status := doJSON(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%d", server.URL, quiz.ID), nil, &view); status != http.StatusOK {
		t.Fatalf("get quiz: status %d", status)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(view.Questions))
	}

	var started struct {
		RemainingSeconds int `json:"remainingSeconds"`
	}
	if status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%d/start", server.URL, quiz.ID), map[string]string{
		"studentId": "s1",
	}, &started); status != http.StatusOK {
		t.Fatalf("start quiz: status %d", status)
	}
	if started.RemainingSeconds <= 0 || started.RemainingSeconds > 1800 {
		t.Fatalf("expected remaining in (0, 1800], got %d", started.RemainingSeconds)
	}

	// Placeholder questions keep the correct answer in the first option.
	answers := make(map[string]string, len(quiz.Questions))
	for _, question := range quiz.Questions {
		answers[fmt.Sprintf("%d", question.ID)] = question.Options[0]
	}
	var result domain.SubmissionResult
	if status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%d/submit", server.URL, quiz.ID), map[string]any{
		"studentId": "s1",
		"answers":   answers,
	}, &result); status != http.StatusOK {
		t.Fatalf("submit: status %d", status)
	}
	if result.Percentage != 100 || result.Correct != 5 {
		t.Fatalf("expected a perfect score, got %+v", result)
	}

	if status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%d/submit", server.URL, quiz.ID), map[string]any{
		"studentId": "s1",
		"answers":   answers,
	}, nil); status != http.StatusConflict {
		t.Fatalf("second submit: expected 409, got %d", status)
	}

	var ranking []domain.RankingEntry
	if status := doJSON(t, http.MethodGet, fmt.Sprintf("%s/classes/%d/ranking", server.URL, class.ID), nil, &ranking); status != http.StatusOK {
		t.Fatalf("ranking: status %d", status)
	}
	if len(ranking) != 1 || ranking[0].Total != 100 {
		t.Fatalf("unexpected ranking: %+v", ranking)
	}

	var score struct {
		QuizTotal int `json:"quizTotal"`
		Total     int `json:"total"`
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/students/s1/score", nil, &score); status != http.StatusOK {
		t.Fatalf("score: status %d", status)
	}
	if score.QuizTotal != 100 || score.Total != 100 {
		t.Fatalf("unexpected score: %+v", score)
	}

	var entries []struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Points      int    `json:"points"`
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/students/s1/history", nil, &entries); status != http.StatusOK {
		t.Fatalf("history: status %d", status)
	}
	if len(entries) != 1 || entries[0].Points != 100 {
		t.Fatalf("unexpected history: %+v", entries)
	}
	if len(entries[0].Date) != len("02/01/2006 15:04:05") {
		t.Fatalf("date not in display format: %q", entries[0].Date)
	}
}

func TestErrorMapping(t *testing.T) {
	server := newTestServer(t)

	if status := doJSON(t, http.MethodGet, server.URL+"/quizzes/99", nil, nil); status != http.StatusNotFound {
		t.Fatalf("unknown quiz: expected 404, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, server.URL+"/classes", map[string]string{
		"teacherId": "t1", "name": "x", "description": "too short name",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("invalid class name: expected 400, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, server.URL+"/quizzes", map[string]any{
		"classId": 1, "title": "Valid title", "topic": "History",
		"questionCount": 4, "arity": 4, "durationMinutes": 30,
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("bad question count: expected 400, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, server.URL+"/scenarios", map[string]string{
		"title": "Debate night", "description": "in-class debate", "topic": "Unknown topic", "mode": "debate",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown scenario topic: expected 400, got %d", status)
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/quizzes/abc", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("non-numeric id: expected 400, got %d", status)
	}
}

func TestRosterAndStateRoutes(t *testing.T) {
	server := newTestServer(t)

	var allocated struct {
		ClassID int `json:"classId"`
	}
	if status := doJSON(t, http.MethodPost, server.URL+"/classes/allocate-id", nil, &allocated); status != http.StatusOK {
		t.Fatalf("allocate id: status %d", status)
	}
	if allocated.ClassID != 1 {
		t.Fatalf("expected first id 1, got %d", allocated.ClassID)
	}

	// The allocation above consumed an identifier, so the created class gets 2.
	var class domain.Class
	if status := doJSON(t, http.MethodPost, server.URL+"/classes", map[string]string{
		"teacherId": "t1", "name": "3B", "description": "third year, section B",
	}, &class); status != http.StatusCreated {
		t.Fatalf("create class: status %d", status)
	}
	if class.ID != 2 {
		t.Fatalf("expected class id 2 after a raw allocation, got %d", class.ID)
	}

	var fetched domain.Class
	if status := doJSON(t, http.MethodGet, fmt.Sprintf("%s/classes/%d", server.URL, class.ID), nil, &fetched); status != http.StatusOK {
		t.Fatalf("get class: status %d", status)
	}
	if fetched.Name != "3B" {
		t.Fatalf("unexpected class: %+v", fetched)
	}

	if status := doJSON(t, http.MethodPost, server.URL+"/students", domain.Student{
		ID: "s9", FirstName: "Sara", LastName: "Verdi", School: "Liceo Nord",
	}, nil); status != http.StatusCreated {
		t.Fatalf("register student: status %d", status)
	}

	var unassigned []domain.Student
	if status := doJSON(t, http.MethodGet, server.URL+"/students/unassigned?school=Liceo+Nord", nil, &unassigned); status != http.StatusOK {
		t.Fatalf("unassigned: status %d", status)
	}
	if len(unassigned) != 1 || unassigned[0].ID != "s9" {
		t.Fatalf("unexpected unassigned list: %+v", unassigned)
	}

	var classes []domain.Class
	if status := doJSON(t, http.MethodGet, server.URL+"/teachers/t1/classes", nil, &classes); status != http.StatusOK {
		t.Fatalf("teacher classes: status %d", status)
	}
	if len(classes) != 1 {
		t.Fatalf("expected one class, got %d", len(classes))
	}

	var quiz domain.Quiz
	if status := doJSON(t, http.MethodPost, server.URL+"/quizzes", map[string]any{
		"classId": class.ID, "title": "Roman Empire", "topic": "History",
		"questionCount": 5, "arity": 4, "durationMinutes": 30,
	}, &quiz); status != http.StatusCreated {
		t.Fatalf("create quiz: status %d", status)
	}

	var state struct {
		State domain.AttemptState `json:"state"`
	}
	stateURL := fmt.Sprintf("%s/quizzes/%d/state?studentId=s9", server.URL, quiz.ID)
	if status := doJSON(t, http.MethodGet, stateURL, nil, &state); status != http.StatusOK {
		t.Fatalf("state: status %d", status)
	}
	if state.State != domain.AttemptNotStarted {
		t.Fatalf("expected not started, got %s", state.State)
	}

	if status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%d/start", server.URL, quiz.ID), map[string]string{
		"studentId": "s9",
	}, nil); status != http.StatusOK {
		t.Fatalf("start: status %d", status)
	}
	if status := doJSON(t, http.MethodGet, stateURL, nil, &state); status != http.StatusOK {
		t.Fatalf("state: status %d", status)
	}
	if state.State != domain.AttemptInProgress {
		t.Fatalf("expected in progress, got %s", state.State)
	}
}
