package model

import "time"

// Kind identifies a question variant.
type Kind string

const (
	KindTrueFalse          Kind = "truefalse"
	KindMultipleChoice     Kind = "multiplechoice"
	KindSelectAllThatApply Kind = "selectallthatapply"
	KindFillInTheBlank     Kind = "fillintheblank"
	KindMatching           Kind = "matching"
	KindShortAnswer        Kind = "shortanswer"
	KindLongAnswer         Kind = "longanswer"
)

// FreeText reports whether the kind is graded by an LLM rather than
// programmatically.
func (k Kind) FreeText() bool {
	return k == KindShortAnswer || k == KindLongAnswer
}

// Valid reports whether k is one of the known question kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTrueFalse, KindMultipleChoice, KindSelectAllThatApply,
		KindFillInTheBlank, KindMatching, KindShortAnswer, KindLongAnswer:
		return true
	}
	return false
}

// Pair is one left-right association in a matching question.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Answer holds one answer value. Exactly the field matching the owning
// question's kind is meaningful; all others are unset.
type Answer struct {
	Bool    *bool    `json:"bool,omitempty"`
	Choice  *int     `json:"choice,omitempty"`
	Choices []int    `json:"choices,omitempty"`
	Blanks  []string `json:"blanks,omitempty"`
	Pairs   []Pair   `json:"pairs,omitempty"`
	Text    *string  `json:"text,omitempty"`
}

// BoolAnswer builds a true/false answer value.
func BoolAnswer(v bool) Answer { return Answer{Bool: &v} }

// ChoiceAnswer builds a multiple-choice answer value.
func ChoiceAnswer(i int) Answer { return Answer{Choice: &i} }

// ChoicesAnswer builds a select-all-that-apply answer value.
func ChoicesAnswer(idx ...int) Answer { return Answer{Choices: idx} }

// BlanksAnswer builds a fill-in-the-blank answer value.
func BlanksAnswer(blanks ...string) Answer { return Answer{Blanks: blanks} }

// PairsAnswer builds a matching answer value.
func PairsAnswer(pairs ...Pair) Answer { return Answer{Pairs: pairs} }

// TextAnswer builds a free-text answer value.
func TextAnswer(s string) Answer { return Answer{Text: &s} }

// FreeText returns the free-text content of the answer, or "" when unset.
func (a Answer) FreeText() string {
	if a.Text == nil {
		return ""
	}
	return *a.Text
}

// Question is one quiz question. Immutable once generated; the evaluation
// pipeline only reads it.
type Question struct {
	Kind    Kind     `json:"type"`
	Prompt  string   `json:"question"`
	Options []string `json:"options,omitempty"`
	Key     Answer   `json:"-"`
}

// EvaluationResult is the parsed outcome of one LLM grading call.
type EvaluationResult struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// EvaluatedQuestion is the per-question output of the evaluator.
// A nil UserAnswer marks the question as unanswered.
type EvaluatedQuestion struct {
	Question      Question `json:"question"`
	UserAnswer    *Answer  `json:"user_answer,omitempty"`
	IsCorrect     bool     `json:"is_correct"`
	CorrectAnswer Answer   `json:"correct_answer"`
	Feedback      string   `json:"feedback,omitempty"`
	Score         *int     `json:"score,omitempty"`
}

// ProviderConfig holds the connection settings for one LLM backend.
// Evaluation may use a different provider and model than generation, so
// each backend is configured independently.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// EvalConfig holds runtime evaluation parameters assembled from flags,
// environment and the config file.
type EvalConfig struct {
	Provider   string
	Language   string
	Timeout    time.Duration
	ResultsDir string
	Providers  map[string]ProviderConfig
}
