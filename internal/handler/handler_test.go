package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pvidal/quizmark/internal/eval"
	appI18n "github.com/pvidal/quizmark/internal/i18n"
	"github.com/pvidal/quizmark/internal/model"
	"github.com/pvidal/quizmark/internal/report"
	"github.com/pvidal/quizmark/internal/store"
)

type stubGrader struct {
	score    int
	feedback string
	err      error
}

func (g *stubGrader) Grade(ctx context.Context, userAnswer, correctAnswer string) (model.EvaluationResult, error) {
	if g.err != nil {
		return model.EvaluationResult{}, g.err
	}
	return model.EvaluationResult{Score: g.score, Feedback: g.feedback}, nil
}

func testQuestions() []model.Question {
	return []model.Question{
		{Kind: model.KindTrueFalse, Prompt: "Go is compiled.", Key: model.BoolAnswer(true)},
		{Kind: model.KindMultipleChoice, Prompt: "Pick go.", Options: []string{"run", "go"}, Key: model.ChoiceAnswer(1)},
		{Kind: model.KindShortAnswer, Prompt: "What is a channel?", Key: model.TextAnswer("a typed conduit")},
	}
}

func newTestHandler(t *testing.T, g eval.Grader) (*Handler, chi.Router, string) {
	t.Helper()

	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	resultsDir := t.TempDir()
	h, err := New(
		st,
		eval.New(g),
		report.New(resultsDir),
		map[string][]model.Question{"go-basics": testQuestions()},
		"secret",
	)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)
	return h, r, resultsDir
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestExamFlow(t *testing.T) {
	_, r, resultsDir := newTestHandler(t, &stubGrader{score: 90, feedback: "solid"})

	// Create an exam session.
	rec := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"quiz": "go-basics"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID        string          `json:"id"`
		Questions json.RawMessage `json:"questions"`
	}
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("create should return a session ID")
	}
	if strings.Contains(string(created.Questions), "answer") {
		t.Error("questions shown to the exam taker must not carry the answer key")
	}

	// Answer before start is rejected.
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/answers",
		map[string]any{"index": 0, "answer": true}, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("answer before start: status %d, want 409", rec.Code)
	}

	// Start.
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/start", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Double start is rejected.
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/start", nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("double start: status %d, want 409", rec.Code)
	}

	// Answer all three questions; question 1 is answered wrong.
	answers := []any{true, 0, "a pipe between goroutines"}
	for i, a := range answers {
		rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/answers",
			map[string]any{"index": i, "answer": a}, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %d: status %d, body %s", i, rec.Code, rec.Body.String())
		}
	}

	// Submit: evaluates, writes the report, persists results.
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/submit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Score      int                       `json:"score"`
		TotalScore int                       `json:"total_score"`
		ReportPath string                    `json:"report_path"`
		Results    []model.EvaluatedQuestion `json:"results"`
	}
	decodeBody(t, rec, &submitted)
	if submitted.TotalScore != 6 {
		t.Errorf("total score = %d, want 6", submitted.TotalScore)
	}
	if submitted.Score != 4 {
		t.Errorf("score = %d, want 4 (true/false and short answer correct)", submitted.Score)
	}
	if len(submitted.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(submitted.Results))
	}
	if submitted.Results[1].IsCorrect {
		t.Error("wrong multiple choice should be incorrect")
	}
	if !submitted.Results[2].IsCorrect || submitted.Results[2].Feedback != "solid" {
		t.Errorf("graded short answer should carry feedback, got %+v", submitted.Results[2])
	}
	if submitted.ReportPath == "" {
		t.Fatal("submit should write a report")
	}
	data, err := os.ReadFile(submitted.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "quiz: go-basics") {
		t.Error("report should carry the quiz name")
	}
	if filepath.Dir(submitted.ReportPath) != resultsDir {
		t.Errorf("report should be written under the results dir, got %q", submitted.ReportPath)
	}

	// Double submit is rejected.
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/submit", nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("double submit: status %d, want 409", rec.Code)
	}

	// Stored results are served back.
	rec = doJSON(t, r, http.MethodGet, "/exams/"+created.ID+"/results", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("results: status %d, body %s", rec.Code, rec.Body.String())
	}
	var export model.SessionExport
	decodeBody(t, rec, &export)
	if export.Session.Status != model.StatusGraded {
		t.Errorf("stored session status = %q, want graded", export.Session.Status)
	}
	if len(export.Results) != 3 {
		t.Errorf("stored results = %d, want 3", len(export.Results))
	}
}

func TestCreateExamUnknownQuiz(t *testing.T) {
	_, r, _ := newTestHandler(t, &stubGrader{})
	rec := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"quiz": "nope"}, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestAnswerValidation(t *testing.T) {
	_, r, _ := newTestHandler(t, &stubGrader{})

	rec := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"quiz": "go-basics"}, "")
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)
	doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/start", nil, "")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"negative index", map[string]any{"index": -1, "answer": true}, http.StatusBadRequest},
		{"index out of range", map[string]any{"index": 99, "answer": true}, http.StatusBadRequest},
		{"missing answer", map[string]any{"index": 0}, http.StatusBadRequest},
		{"wrong answer shape", map[string]any{"index": 0, "answer": []int{1, 2}}, http.StatusBadRequest},
		{"valid", map[string]any{"index": 0, "answer": true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/answers", tt.body, "")
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGradingFailureDegradesSingleQuestion(t *testing.T) {
	_, r, _ := newTestHandler(t, &stubGrader{err: fmt.Errorf("connection refused")})

	rec := doJSON(t, r, http.MethodPost, "/exams", map[string]string{"quiz": "go-basics"}, "")
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)
	doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/start", nil, "")

	doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/answers", map[string]any{"index": 0, "answer": true}, "")
	doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/answers", map[string]any{"index": 2, "answer": "something"}, "")

	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/submit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit should still succeed, status %d", rec.Code)
	}
	var submitted struct {
		Results []model.EvaluatedQuestion `json:"results"`
	}
	decodeBody(t, rec, &submitted)
	if len(submitted.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(submitted.Results))
	}
	if !submitted.Results[0].IsCorrect {
		t.Error("objective answer should be unaffected by the grading failure")
	}
	if submitted.Results[2].IsCorrect || submitted.Results[2].Feedback == "" {
		t.Error("failed grading should degrade to incorrect with error feedback")
	}
}

func TestAdminAuth(t *testing.T) {
	_, r, _ := newTestHandler(t, &stubGrader{})

	rec := doJSON(t, r, http.MethodGet, "/exams", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/login", map[string]string{"password": "wrong"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/login", map[string]string{"password": "secret"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)
	if login.Token == "" {
		t.Fatal("login should return a token")
	}

	rec = doJSON(t, r, http.MethodGet, "/exams", nil, login.Token)
	if rec.Code != http.StatusOK {
		t.Errorf("with token: status %d, want 200", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/exams", nil, "bogus")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: status %d, want 401", rec.Code)
	}
}
