// Package http is the thin JSON API over the core services. It maps domain
// errors to status codes and formats timestamps at this boundary; no core
// package deals in display strings.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"classquest/internal/app"
	"classquest/internal/domain"
)

const displayTimeLayout = "02/01/2006 15:04:05"

type API struct {
	attempts  *app.AttemptService
	quizzes   *app.QuizService
	rankings  *app.RankingService
	roster    *app.RosterService
	scenarios *app.ScenarioService
}

func NewAPI(attempts *app.AttemptService, quizzes *app.QuizService, rankings *app.RankingService, roster *app.RosterService, scenarios *app.ScenarioService) *API {
	return &API{
		attempts:  attempts,
		quizzes:   quizzes,
		rankings:  rankings,
		roster:    roster,
		scenarios: scenarios,
	}
}

// Register mounts all routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /classes", a.createClass)
	mux.HandleFunc("POST /classes/allocate-id", a.allocateClassID)
	mux.HandleFunc("GET /classes/{id}", a.getClass)
	mux.HandleFunc("DELETE /classes/{id}", a.deleteClass)
	mux.HandleFunc("GET /classes/{id}/students", a.classStudents)
	mux.HandleFunc("POST /classes/{id}/students", a.assignStudent)
	mux.HandleFunc("DELETE /classes/{id}/students/{studentId}", a.unassignStudent)
	mux.HandleFunc("GET /classes/{id}/ranking", a.classRanking)
	mux.HandleFunc("GET /classes/{id}/quizzes", a.classQuizzes)
	mux.HandleFunc("GET /classes/{id}/quizzes/latest", a.latestQuiz)

	mux.HandleFunc("POST /students", a.registerStudent)
	mux.HandleFunc("GET /students/unassigned", a.unassignedStudents)
	mux.HandleFunc("GET /students/{id}/score", a.personalScore)
	mux.HandleFunc("GET /students/{id}/history", a.studentHistory)

	mux.HandleFunc("GET /teachers/{id}/classes", a.teacherClasses)
	mux.HandleFunc("GET /teachers/{id}/ranking", a.teacherRanking)

	mux.HandleFunc("POST /quizzes", a.createQuiz)
	mux.HandleFunc("GET /quizzes/{id}", a.getQuiz)
	mux.HandleFunc("POST /quizzes/{id}/start", a.startQuiz)
	mux.HandleFunc("GET /quizzes/{id}/remaining", a.remainingTime)
	mux.HandleFunc("GET /quizzes/{id}/state", a.attemptState)
	mux.HandleFunc("POST /quizzes/{id}/submit", a.submitQuiz)
	mux.HandleFunc("GET /quizzes/{id}/results", a.quizResults)

	mux.HandleFunc("POST /scenarios", a.createScenario)
	mux.HandleFunc("GET /scenarios/{id}", a.getScenario)
	mux.HandleFunc("POST /scenarios/{id}/results", a.recordScenarioResult)
}

type createClassRequest struct {
	TeacherID   string `json:"teacherId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) createClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if !decode(w, r, &req) {
		return
	}
	class, err := a.roster.CreateClass(r.Context(), req.TeacherID, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

// allocateClassID consumes the next class identifier without creating a class,
// for clients that assemble the class in a later step.
func (a *API) allocateClassID(w http.ResponseWriter, r *http.Request) {
	id, err := a.roster.AllocateClassID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"classId": id})
}

func (a *API) getClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	class, err := a.roster.Class(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) deleteClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := a.roster.DeleteClass(r.Context(), classID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) classStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if prefix := r.URL.Query().Get("search"); prefix != "" {
		students, err := a.roster.SearchClassStudents(r.Context(), classID, prefix)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, students)
		return
	}
	students, err := a.roster.ClassStudents(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (a *API) assignStudent(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		StudentID string `json:"studentId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.roster.AssignStudent(r.Context(), req.StudentID, classID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) unassignStudent(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathInt(w, r, "id"); !ok {
		return
	}
	if err := a.roster.UnassignStudent(r.Context(), r.PathValue("studentId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) classRanking(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.rankings.ClassRanking(r.Context(), classID))
}

func (a *API) registerStudent(w http.ResponseWriter, r *http.Request) {
	var student domain.Student
	if !decode(w, r, &student) {
		return
	}
	if student.ID == "" {
		http.Error(w, "missing student id", http.StatusBadRequest)
		return
	}
	if err := a.roster.RegisterStudent(r.Context(), student); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

type personalScoreView struct {
	QuizTotal     int `json:"quizTotal"`
	ScenarioTotal int `json:"scenarioTotal"`
	Total         int `json:"total"`
}

func (a *API) personalScore(w http.ResponseWriter, r *http.Request) {
	score := a.rankings.PersonalScore(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, personalScoreView{
		QuizTotal:     score.QuizTotal,
		ScenarioTotal: score.ScenarioTotal,
		Total:         score.Combined(),
	})
}

type historyEntryView struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

func (a *API) studentHistory(w http.ResponseWriter, r *http.Request) {
	entries := a.rankings.StudentHistory(r.Context(), r.PathValue("id"))
	views := make([]historyEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, historyEntryView{
			Date:        entry.RecordedAt.Format(displayTimeLayout),
			Description: entry.Description,
			Points:      entry.Points,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) unassignedStudents(w http.ResponseWriter, r *http.Request) {
	school := r.URL.Query().Get("school")
	if school == "" {
		http.Error(w, "missing school", http.StatusBadRequest)
		return
	}
	students, err := a.roster.UnassignedStudents(r.Context(), school)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (a *API) teacherClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := a.roster.TeacherClasses(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (a *API) teacherRanking(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.rankings.TeacherClassRanking(r.Context(), r.PathValue("id")))
}

type createQuizRequest struct {
	ClassID         int    `json:"classId"`
	Title           string `json:"title"`
	Topic           string `json:"topic"`
	QuestionCount   int    `json:"questionCount"`
	Arity           int    `json:"arity"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := a.quizzes.Create(r.Context(), req.ClassID, req.Title, req.Topic, req.QuestionCount, req.Arity, req.DurationMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// questionView omits the correct answer; students fetch quizzes through this.
type questionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type quizView struct {
	ID              int            `json:"id"`
	Title           string         `json:"title"`
	Topic           string         `json:"topic"`
	ClassID         int            `json:"classId"`
	Arity           int            `json:"arity"`
	DurationMinutes int            `json:"durationMinutes"`
	Questions       []questionView `json:"questions"`
}

func toQuizView(quiz domain.Quiz) quizView {
	view := quizView{
		ID:              quiz.ID,
		Title:           quiz.Title,
		Topic:           quiz.Topic,
		ClassID:         quiz.ClassID,
		Arity:           quiz.Arity,
		DurationMinutes: quiz.DurationMinutes,
		Questions:       make([]questionView, 0, len(quiz.Questions)),
	}
	for _, question := range quiz.Questions {
		view.Questions = append(view.Questions, questionView{
			ID:      question.ID,
			Text:    question.Text,
			Options: question.Options,
		})
	}
	return view
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	quiz, err := a.quizzes.Quiz(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizView(quiz))
}

func (a *API) classQuizzes(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	quizzes, err := a.quizzes.ClassQuizzes(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]quizView, 0, len(quizzes))
	for _, quiz := range quizzes {
		views = append(views, toQuizView(quiz))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) latestQuiz(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	quiz, err := a.quizzes.LatestForClass(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizView(quiz))
}

type startQuizRequest struct {
	StudentID string `json:"studentId"`
}

type startQuizResponse struct {
	QuizID           int    `json:"quizId"`
	StudentID        string `json:"studentId"`
	StartedAt        string `json:"startedAt"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

func (a *API) startQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req startQuizRequest
	if !decode(w, r, &req) {
		return
	}
	attempt, remaining, err := a.attempts.Start(r.Context(), quizID, req.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startQuizResponse{
		QuizID:           attempt.QuizID,
		StudentID:        attempt.StudentID,
		StartedAt:        attempt.StartedAt.Format(displayTimeLayout),
		RemainingSeconds: remaining,
	})
}

func (a *API) remainingTime(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		http.Error(w, "missing studentId", http.StatusBadRequest)
		return
	}
	remaining, err := a.attempts.Remaining(r.Context(), quizID, studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"remainingSeconds": remaining})
}

func (a *API) attemptState(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		http.Error(w, "missing studentId", http.StatusBadRequest)
		return
	}
	state, err := a.attempts.State(r.Context(), quizID, studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.AttemptState{"state": state})
}

type submitQuizRequest struct {
	StudentID string            `json:"studentId"`
	Answers   map[string]string `json:"answers"` // question ID -> selected option text
}

func (a *API) submitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req submitQuizRequest
	if !decode(w, r, &req) {
		return
	}

	answers := make(map[int]string, len(req.Answers))
	for key, value := range req.Answers {
		questionID, err := strconv.Atoi(key)
		if err != nil {
			http.Error(w, "invalid question id "+key, http.StatusBadRequest)
			return
		}
		answers[questionID] = value
	}

	result, err := a.attempts.Submit(r.Context(), quizID, req.StudentID, answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) quizResults(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	outcomes, err := a.quizzes.Results(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

type createScenarioRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	Mode        string `json:"mode"`
}

func (a *API) createScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	scenario, err := a.scenarios.Create(r.Context(), req.Title, req.Description, req.Topic, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scenario)
}

func (a *API) getScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	scenario, err := a.scenarios.Get(r.Context(), scenarioID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenario)
}

type scenarioResultRequest struct {
	StudentID string `json:"studentId"`
	Points    int    `json:"points"`
}

func (a *API) recordScenarioResult(w http.ResponseWriter, r *http.Request) {
	scenarioID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req scenarioResultRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.scenarios.RecordResult(r.Context(), req.StudentID, scenarioID, req.Points); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var pw *domain.PartialWriteError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrClassNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrScenarioNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrDuplicateTitle):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrEmptyQuestionSet):
		status = http.StatusUnprocessableEntity
	// A partial write means the score committed; it must not look retryable
	// even when the underlying cause is storage being unavailable.
	case errors.As(err, &pw):
		status = http.StatusInternalServerError
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, app.ErrInvalidClassName),
		errors.Is(err, app.ErrInvalidDescription),
		errors.Is(err, app.ErrInvalidTitle),
		errors.Is(err, app.ErrInvalidQuestionCount),
		errors.Is(err, app.ErrInvalidArity),
		errors.Is(err, app.ErrInvalidDuration),
		errors.Is(err, app.ErrInvalidTopic),
		errors.Is(err, app.ErrInvalidScenarioTitle):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
