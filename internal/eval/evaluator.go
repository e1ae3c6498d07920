package eval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pvidal/quizmark/internal/model"
)

// correctThreshold is the minimum LLM score considered a correct free-text
// answer, aligned with the "Good, but improvable" grading band.
const correctThreshold = 70

// defaultErrorFeedback is shown for a question whose grading call failed.
const defaultErrorFeedback = "Error during evaluation."

// Grader grades a free-text answer against the keyed answer.
// Implementations call an LLM; tests stub it.
type Grader interface {
	Grade(ctx context.Context, userAnswer, correctAnswer string) (model.EvaluationResult, error)
}

// Evaluator converts a question sequence plus an answer map into an
// index-ordered sequence of evaluated questions.
type Evaluator struct {
	grader        Grader
	timeout       time.Duration
	errorFeedback string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout bounds each individual grading call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.timeout = d }
}

// WithErrorFeedback overrides the feedback text used when a grading call
// fails, so callers can localize it.
func WithErrorFeedback(msg string) Option {
	return func(e *Evaluator) { e.errorFeedback = msg }
}

// New creates an evaluator backed by the given grader.
func New(g Grader, opts ...Option) *Evaluator {
	e := &Evaluator{
		grader:        g,
		timeout:       60 * time.Second,
		errorFeedback: defaultErrorFeedback,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAll evaluates every question against the submitted answers and
// returns exactly one result per question, in question order.
//
// Closed-form kinds are resolved synchronously. Free-text kinds each get
// their own goroutine issuing one grading call; every goroutine writes only
// its own pre-allocated slot, and all are joined before returning. A failed
// grading call degrades that single question to an incorrect result with
// error feedback; it never affects other questions, and EvaluateAll never
// fails as a whole.
func (e *Evaluator) EvaluateAll(ctx context.Context, questions []model.Question, answers map[int]model.Answer) []model.EvaluatedQuestion {
	results := make([]model.EvaluatedQuestion, len(questions))
	var wg sync.WaitGroup

	for i, q := range questions {
		answer, ok := answers[i]
		if !ok {
			results[i] = model.EvaluatedQuestion{
				Question:      q,
				UserAnswer:    nil,
				IsCorrect:     false,
				CorrectAnswer: q.Key,
			}
			continue
		}

		if q.Kind.FreeText() {
			wg.Add(1)
			go func(i int, q model.Question, answer model.Answer) {
				defer wg.Done()
				results[i] = e.gradeFreeText(ctx, q, answer)
			}(i, q, answer)
			continue
		}

		results[i] = model.EvaluatedQuestion{
			Question:      q,
			UserAnswer:    &answer,
			IsCorrect:     Correct(q, answer),
			CorrectAnswer: q.Key,
		}
	}

	wg.Wait()
	return results
}

func (e *Evaluator) gradeFreeText(ctx context.Context, q model.Question, answer model.Answer) model.EvaluatedQuestion {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.grader.Grade(ctx, answer.FreeText(), q.Key.FreeText())
	if err != nil {
		slog.Error("free-text grading failed", "question", q.Prompt, "error", err)
		return model.EvaluatedQuestion{
			Question:      q,
			UserAnswer:    &answer,
			IsCorrect:     false,
			CorrectAnswer: q.Key,
			Feedback:      e.errorFeedback,
		}
	}

	score := result.Score
	return model.EvaluatedQuestion{
		Question:      q,
		UserAnswer:    &answer,
		IsCorrect:     score >= correctThreshold,
		CorrectAnswer: q.Key,
		Feedback:      result.Feedback,
		Score:         &score,
	}
}
