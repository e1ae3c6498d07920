// Package handler exposes the exam lifecycle as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pvidal/quizmark/internal/eval"
	"github.com/pvidal/quizmark/internal/exam"
	"github.com/pvidal/quizmark/internal/model"
	"github.com/pvidal/quizmark/internal/report"
	"github.com/pvidal/quizmark/internal/store"
)

// session pairs a live exam state with its question set.
type session struct {
	state     *exam.State
	questions []model.Question
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	evaluator *eval.Evaluator
	reports   *report.Generator
	quizzes   map[string][]model.Question
	adminHash []byte
	validate  *validator.Validate

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Handler. An empty adminPassword disables the admin
// endpoints.
func New(s *store.Store, ev *eval.Evaluator, rep *report.Generator, quizzes map[string][]model.Question, adminPassword string) (*Handler, error) {
	var hash []byte
	if adminPassword != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}
	return &Handler{
		store:     s,
		evaluator: ev,
		reports:   rep,
		quizzes:   quizzes,
		adminHash: hash,
		validate:  validator.New(),
		sessions:  make(map[string]*session),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Get("/quizzes", h.handleListQuizzes)
	r.Post("/exams", h.handleCreateExam)
	r.Post("/exams/{sessionID}/start", h.handleStartExam)
	r.Post("/exams/{sessionID}/answers", h.handleAnswer)
	r.Post("/exams/{sessionID}/submit", h.handleSubmit)
	r.Get("/exams/{sessionID}/results", h.handleResults)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/exams", h.handleListExams)
	})
}

// questionView is a question as shown to the exam taker: no answer key.
type questionView struct {
	Kind    model.Kind `json:"type"`
	Prompt  string     `json:"question"`
	Options []string   `json:"options,omitempty"`
}

func questionViews(questions []model.Question) []questionView {
	views := make([]questionView, len(questions))
	for i, q := range questions {
		views[i] = questionView{Kind: q.Kind, Prompt: q.Prompt, Options: q.Options}
	}
	return views
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.quizzes))
	for name := range h.quizzes {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": names})
}

type createExamRequest struct {
	Quiz string `json:"quiz" validate:"required"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !h.decode(w, r, &req) {
		return
	}

	questions, ok := h.quizzes[req.Quiz]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown quiz")
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &session{
		state:     exam.New(req.Quiz),
		questions: questions,
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        id,
		"quiz":      req.Quiz,
		"questions": questionViews(questions),
	})
}

func (h *Handler) session(id string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := h.session(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown exam session")
		return
	}

	if err := sess.state.Start(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := h.store.CreateSession(id, sess.state.QuizName(), time.Now()); err != nil {
		slog.Error("persist session failed", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not persist session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": true})
}

type answerRequest struct {
	Index  int             `json:"index" validate:"gte=0"`
	Answer json.RawMessage `json:"answer" validate:"required"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := h.session(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown exam session")
		return
	}

	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Index >= len(sess.questions) {
		writeError(w, http.StatusBadRequest, "question index out of range")
		return
	}
	if !sess.state.Active() {
		writeError(w, http.StatusConflict, "exam not active")
		return
	}

	answer, err := model.DecodeAnswer(sess.questions[req.Index].Kind, req.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.state.AddAnswer(req.Index, answer)
	writeJSON(w, http.StatusOK, map[string]any{"index": req.Index, "recorded": true})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := h.session(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown exam session")
		return
	}

	snap, err := sess.state.End()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	ctx := r.Context()
	results := h.evaluator.EvaluateAll(ctx, sess.questions, snap.Answers)
	score, total := report.Score(results)

	content := h.reports.Generate(ctx, sess.state.QuizName(), results, score, total)
	reportPath, err := h.reports.Save(sess.state.QuizName(), content)
	if err != nil {
		// Evaluation already succeeded; report the save failure but keep
		// the results.
		slog.Error("save report failed", "session", id, "error", err)
		reportPath = ""
	}

	if err := h.store.SaveResults(id, results); err != nil {
		slog.Error("persist results failed", "session", id, "error", err)
	}
	if err := h.store.CompleteSession(id, time.Now(), score, total, reportPath); err != nil {
		slog.Error("complete session failed", "session", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"score":       score,
		"total_score": total,
		"report_path": reportPath,
		"results":     results,
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	sess, err := h.store.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown exam session")
		return
	}
	results, err := h.store.GetResults(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load results")
		return
	}

	writeJSON(w, http.StatusOK, model.SessionExport{Session: *sess, Results: results})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// decode unmarshals and validates a request body, writing the error
// response itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
