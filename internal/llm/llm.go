// Package llm dispatches free-text grading requests to a configurable LLM
// backend and normalizes responses into a uniform result.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/pvidal/quizmark/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Provider names an LLM backend. The set is open: kinds without a grading
// backend are accepted by configuration but rejected with a uniform error
// when selected for evaluation.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderPerplexity Provider = "perplexity"
	ProviderMistral    Provider = "mistral"
	ProviderOllama     Provider = "ollama"
	ProviderGoogle     Provider = "google"
	ProviderAnthropic  Provider = "anthropic"
	ProviderCohere     Provider = "cohere"
)

// defaultBaseURLs maps each OpenAI-compatible backend to its endpoint.
// An empty string keeps the client library's default.
var defaultBaseURLs = map[Provider]string{
	ProviderOpenAI:     "",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderPerplexity: "https://api.perplexity.ai",
	ProviderMistral:    "https://api.mistral.ai/v1",
	ProviderOllama:     "http://localhost:11434/v1",
}

// fallbackFeedback is used when the grading response cannot be parsed as
// the expected JSON shape. A malformed response is graded leniently as
// score zero, not treated as a hard failure.
const fallbackFeedback = "Could not get feedback from the evaluation model."

// GradeError is the uniform failure for a grading call: it names the
// provider and wraps the underlying cause.
type GradeError struct {
	Provider Provider
	Err      error
}

func (e *GradeError) Error() string {
	return fmt.Sprintf("evaluation failed for provider %s: %v", e.Provider, e.Err)
}

func (e *GradeError) Unwrap() error { return e.Err }

// Client grades answers through one configured OpenAI-compatible backend.
type Client struct {
	provider Provider
	api      *openai.Client
	model    string
	language string
}

// New resolves the selected evaluation provider from the config and builds
// a grading client for it. Selecting a provider without a grading backend,
// or one with missing credentials, is an error.
func New(cfg model.EvalConfig) (*Client, error) {
	provider := Provider(cfg.Provider)
	pc := cfg.Providers[cfg.Provider]

	baseURL, ok := defaultBaseURLs[provider]
	if !ok {
		return nil, &GradeError{provider, fmt.Errorf("no grading backend implemented")}
	}
	if pc.BaseURL != "" {
		baseURL = pc.BaseURL
	}

	// Ollama serves without credentials; every hosted backend needs a key.
	if pc.APIKey == "" && provider != ProviderOllama {
		return nil, &GradeError{provider, fmt.Errorf("API key is not set")}
	}
	if pc.Model == "" {
		return nil, &GradeError{provider, fmt.Errorf("model is not set")}
	}

	config := openai.DefaultConfig(pc.APIKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		provider: provider,
		api:      openai.NewClientWithConfig(config),
		model:    pc.Model,
		language: cfg.Language,
	}, nil
}

// Provider returns the backend this client grades with.
func (c *Client) Provider() Provider { return c.provider }

// Grade sends one chat completion asking the model to score the user's
// answer against the correct answer and returns the parsed result.
//
// Transport failures and empty responses are returned as a *GradeError;
// a response that is not the expected JSON shape degrades to score zero
// with fallback feedback instead.
func (c *Client) Grade(ctx context.Context, userAnswer, correctAnswer string) (model.EvaluationResult, error) {
	system, err := evalInstruction(c.language)
	if err != nil {
		return model.EvaluationResult{}, &GradeError{c.provider, err}
	}

	userMessage := fmt.Sprintf("Correct Answer: %q\n\nUser Answer: %q", correctAnswer, userAnswer)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return model.EvaluationResult{}, &GradeError{c.provider, fmt.Errorf("chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return model.EvaluationResult{}, &GradeError{c.provider, fmt.Errorf("empty response")}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("grading response", "provider", c.provider, "raw", raw)

	return parseResult(raw), nil
}

// Ping verifies the backend is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return &GradeError{c.provider, fmt.Errorf("list models: %w", err)}
	}
	return nil
}

// parseResult decodes the model's {"score", "feedback"} payload. Malformed
// or incomplete payloads default rather than fail.
func parseResult(raw string) model.EvaluationResult {
	var out struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("unparseable grading response, defaulting", "error", err)
		return model.EvaluationResult{Score: 0, Feedback: fallbackFeedback}
	}

	score := int(math.Round(out.Score))
	score = min(max(score, 0), 100)

	feedback := strings.TrimSpace(out.Feedback)
	if feedback == "" {
		feedback = fallbackFeedback
	}
	return model.EvaluationResult{Score: score, Feedback: feedback}
}
