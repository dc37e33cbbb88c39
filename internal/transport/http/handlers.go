package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// Handlers bundles the REST endpoints over the application services.
type Handlers struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
	reports  *app.ReportService
}

func NewHandlers(quizzes *app.QuizService, attempts *app.AttemptService, reports *app.ReportService) *Handlers {
	return &Handlers{quizzes: quizzes, attempts: attempts, reports: reports}
}

// --- teacher endpoints ---

type createQuizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Duration    int    `json:"duration"`
	// Pointer so an absent field gets the default while an explicit 0 stays
	// an everyone-passes threshold.
	PassingScore     *int              `json:"passingScore"`
	Deadline         *time.Time        `json:"deadline,omitempty"`
	Questions        []domain.Question `json:"questions"`
	AssignedStudents []string          `json:"assignedStudents"`
}

func (h *Handlers) createQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	passingScore := domain.DefaultPassingScore
	if req.PassingScore != nil {
		passingScore = *req.PassingScore
	}
	quiz, err := h.quizzes.Create(r.Context(), actor.ID, domain.Quiz{
		Title:            req.Title,
		Description:      req.Description,
		Subject:          req.Subject,
		Duration:         req.Duration,
		PassingScore:     passingScore,
		Deadline:         req.Deadline,
		Questions:        req.Questions,
		AssignedStudents: req.AssignedStudents,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handlers) listOwnQuizzes(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	quizzes, err := h.quizzes.CreatedBy(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

type assignRequest struct {
	StudentIDs []string `json:"studentIds"`
}

func (h *Handlers) assignQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	quiz, err := h.quizzes.Assign(r.Context(), actor.ID, chi.URLParam(r, "id"), req.StudentIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handlers) quizResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	results, err := h.quizzes.Results(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handlers) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.quizzes.Delete(r.Context(), actor.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "quiz deleted"})
}

// --- student endpoints ---

func (h *Handlers) assignedQuizzes(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	quizzes, err := h.quizzes.AssignedTo(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handlers) assignedQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	quiz, err := h.quizzes.AssignedQuiz(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type startResponse struct {
	Quiz      domain.RedactedQuiz `json:"quiz"`
	StartedAt time.Time           `json:"startedAt"`
	Deadline  time.Time           `json:"deadline"`
	Remaining int                 `json:"remaining"`
}

func (h *Handlers) startAttempt(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	quiz, session, err := h.attempts.Start(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		Quiz:      quiz,
		StartedAt: session.StartedAt,
		Deadline:  session.Deadline,
		Remaining: session.Remaining(time.Now()),
	})
}

type submitRequest struct {
	Answers   domain.AnswerSet `json:"answers"`
	TimeTaken int              `json:"timeTaken"`
}

func (h *Handlers) submitAttempt(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	if req.Answers == nil {
		req.Answers = domain.AnswerSet{}
	}
	result, err := h.attempts.Submit(r.Context(), chi.URLParam(r, "id"), actor.ID, req.Answers, req.TimeTaken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) attemptResult(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	review, err := h.attempts.Review(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// --- admin endpoints ---

func (h *Handlers) quizReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.QuizReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handlers) subjectReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.SubjectReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handlers) teacherReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.TeacherReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
