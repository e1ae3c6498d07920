// Package report renders evaluated exam results into a markdown report and
// persists it without ever overwriting an earlier report.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	appI18n "github.com/pvidal/quizmark/internal/i18n"
	"github.com/pvidal/quizmark/internal/model"
)

// pointsPerQuestion is the weight of every question in the final score.
const pointsPerQuestion = 2

// Generator renders and saves exam result reports.
type Generator struct {
	resultsDir string
}

// New creates a report generator writing into resultsDir.
func New(resultsDir string) *Generator {
	return &Generator{resultsDir: resultsDir}
}

// Score computes the earned and total score for a result set: two points
// per question, earned only when correct.
func Score(results []model.EvaluatedQuestion) (score, total int) {
	for _, r := range results {
		total += pointsPerQuestion
		if r.IsCorrect {
			score += pointsPerQuestion
		}
	}
	return score, total
}

// Generate renders the full report: a front-matter metadata block followed
// by one callout block per question.
func (g *Generator) Generate(ctx context.Context, quizName string, results []model.EvaluatedQuestion, score, total int) string {
	var sb strings.Builder

	date := time.Now().Format("2006-01-02")
	sb.WriteString("---\n")
	sb.WriteString("quiz: " + quizName + "\n")
	sb.WriteString("date: " + date + "\n")
	fmt.Fprintf(&sb, "score: %d/%d\n", score, total)
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "# %s: %d/%d\n\n", appI18n.T(ctx, "Score"), score, total)

	for _, r := range results {
		sb.WriteString(formatQuestion(ctx, r))
	}

	return sb.String()
}

// Save writes the report as a new file under the results directory,
// creating the directory if needed. On a name collision it appends an
// incrementing numeric suffix; an existing report is never overwritten.
// It returns the path written.
func (g *Generator) Save(quizName, content string) (string, error) {
	if err := os.MkdirAll(g.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results folder: %w", err)
	}

	fileName := quizName + " - Results.md"
	path := filepath.Join(g.resultsDir, fileName)
	for count := 1; pathExists(path); count++ {
		fileName = fmt.Sprintf("%s - Results %d.md", quizName, count)
		path = filepath.Join(g.resultsDir, fileName)
	}

	// O_EXCL guards against a file appearing between the check and the write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("write results file: %w", err)
	}
	return path, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// formatQuestion renders one evaluated question as a callout block.
func formatQuestion(ctx context.Context, r model.EvaluatedQuestion) string {
	var sb strings.Builder

	sb.WriteString("> [!question] " + r.Question.Prompt + "\n")
	sb.WriteString(">> [!success]+ " + appI18n.T(ctx, "YourAnswer") + "\n")
	sb.WriteString(">> " + formatAnswer(ctx, r.Question, r.UserAnswer) + "\n")

	if !r.IsCorrect {
		sb.WriteString(">\n")
		sb.WriteString(">> [!failure]- " + appI18n.T(ctx, "CorrectAnswer") + "\n")
		sb.WriteString(">> " + formatAnswer(ctx, r.Question, &r.CorrectAnswer) + "\n")
	}

	if r.Feedback != "" {
		sb.WriteString(">\n")
		header := appI18n.T(ctx, "Feedback")
		if r.Score != nil {
			header = fmt.Sprintf("%s (%s: %d%%)", header, appI18n.T(ctx, "Score"), *r.Score)
		}
		sb.WriteString(">> [!info] " + header + "\n")
		sb.WriteString(">> " + strings.ReplaceAll(r.Feedback, "\n", "\n>> ") + "\n")
	}

	sb.WriteString("\n---\n\n")
	return sb.String()
}

// formatAnswer renders an answer per its question's kind: options resolved
// by index, pairs as left -> right, blanks comma-joined. A nil answer is
// the unanswered sentinel.
func formatAnswer(ctx context.Context, q model.Question, a *model.Answer) string {
	if a == nil {
		return appI18n.T(ctx, "Unanswered")
	}

	switch q.Kind {
	case model.KindTrueFalse:
		if a.Bool != nil {
			return fmt.Sprintf("%t", *a.Bool)
		}
	case model.KindMultipleChoice:
		if a.Choice != nil {
			return option(q, *a.Choice)
		}
	case model.KindSelectAllThatApply:
		if len(a.Choices) > 0 {
			items := make([]string, len(a.Choices))
			for i, idx := range a.Choices {
				items[i] = "- " + option(q, idx)
			}
			return strings.Join(items, "\n>> ")
		}
	case model.KindFillInTheBlank:
		if len(a.Blanks) > 0 {
			return strings.Join(a.Blanks, ", ")
		}
	case model.KindMatching:
		if len(a.Pairs) > 0 {
			items := make([]string, len(a.Pairs))
			for i, p := range a.Pairs {
				items[i] = fmt.Sprintf("- %s -> %s", p.Left, p.Right)
			}
			return strings.Join(items, "\n>> ")
		}
	case model.KindShortAnswer, model.KindLongAnswer:
		if a.Text != nil {
			return strings.ReplaceAll(*a.Text, "\n", "\n>> ")
		}
	}
	return ""
}

// option returns the option text at idx, or the index itself when out of
// range (malformed data should not break the report).
func option(q model.Question, idx int) string {
	if idx >= 0 && idx < len(q.Options) {
		return q.Options[idx]
	}
	return fmt.Sprintf("#%d", idx)
}
