package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pvidal/quizmark/internal/eval"
	"github.com/pvidal/quizmark/internal/handler"
	appI18n "github.com/pvidal/quizmark/internal/i18n"
	"github.com/pvidal/quizmark/internal/llm"
	"github.com/pvidal/quizmark/internal/model"
	"github.com/pvidal/quizmark/internal/report"
	"github.com/pvidal/quizmark/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizmark",
		Short: "Quiz exam server with LLM-graded free-text answers",
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizmark --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addEvalFlags registers the flags shared by every command that grades
// free-text answers.
func addEvalFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("provider", "p", string(llm.ProviderOllama), "Evaluation provider (openai, openrouter, perplexity, mistral, ollama, ...)")
	f.String("api-key", "", "API key for the selected provider")
	f.String("base-url", "", "Override the provider's API base URL")
	f.StringP("model", "m", "llama3.2", "Model name for the selected provider")
	f.StringP("lang", "l", "en", "Feedback and report language (en, es)")
	f.Duration("eval-timeout", 0, "Per-question grading timeout (0 = evaluator default)")
	f.String("results-dir", "results", "Folder for generated result reports")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizmark.db", "SQLite database path")
	f.StringSliceP("quizzes", "q", []string{"quizzes/go_basics.json"}, "Paths to quiz JSON files (repeatable)")
	f.String("admin-password", "", "Admin password (or set QUIZMARK_ADMIN_PASSWORD; empty disables admin endpoints)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	addEvalFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade an answers file against a quiz and write the report",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("questions", "", "Path to the quiz JSON file (required)")
	f.String("answers", "", "Path to the answers JSON file (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	addEvalFlags(cmd)

	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored exam sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizmark.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizmark")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizmark")
	v.AddConfigPath("/etc/quizmark")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// evalConfig assembles the evaluation settings: per-provider entries from
// the config file, with the flags overriding the selected provider.
func evalConfig(v *viper.Viper) (model.EvalConfig, error) {
	cfg := model.EvalConfig{
		Provider:   v.GetString("provider"),
		Language:   v.GetString("lang"),
		Timeout:    v.GetDuration("eval-timeout"),
		ResultsDir: v.GetString("results-dir"),
		Providers:  map[string]model.ProviderConfig{},
	}
	if err := v.UnmarshalKey("providers", &cfg.Providers); err != nil {
		return cfg, fmt.Errorf("parse providers config: %w", err)
	}

	pc := cfg.Providers[cfg.Provider]
	if key := v.GetString("api-key"); key != "" {
		pc.APIKey = key
	}
	if url := v.GetString("base-url"); url != "" {
		pc.BaseURL = url
	}
	if m := v.GetString("model"); m != "" {
		pc.Model = m
	}
	cfg.Providers[cfg.Provider] = pc

	return cfg, nil
}

// newEvaluator builds the grading client for the configured provider and
// wraps it in an evaluator.
func newEvaluator(ctx context.Context, cfg model.EvalConfig) (*eval.Evaluator, error) {
	client, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create grading client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("grading backend health check: %w", err)
	}
	slog.Info("grading backend OK", "provider", client.Provider())

	var opts []eval.Option
	if cfg.Timeout > 0 {
		opts = append(opts, eval.WithTimeout(cfg.Timeout))
	}
	opts = append(opts, eval.WithErrorFeedback(appI18n.T(ctx, "EvaluationError")))
	return eval.New(client, opts...), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	quizzes, err := loadQuizzes(v.GetStringSlice("quizzes"))
	if err != nil {
		return fmt.Errorf("load quizzes: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg, err := evalConfig(v)
	if err != nil {
		return err
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))
	evaluator, err := newEvaluator(ctx, cfg)
	if err != nil {
		return err
	}

	h, err := handler.New(db, evaluator, report.New(cfg.ResultsDir), quizzes, v.GetString("admin-password"))
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"provider", cfg.Provider,
		"lang", lang,
		"quizzes", len(quizzes),
		"results_dir", cfg.ResultsDir,
	)
	return http.ListenAndServe(addr, r)
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	questionsData, err := os.ReadFile(v.GetString("questions"))
	if err != nil {
		return fmt.Errorf("read questions: %w", err)
	}
	questions, err := model.DecodeQuestions(questionsData)
	if err != nil {
		return err
	}

	answersData, err := os.ReadFile(v.GetString("answers"))
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	answers, err := model.DecodeAnswers(questions, answersData)
	if err != nil {
		return err
	}

	cfg, err := evalConfig(v)
	if err != nil {
		return err
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(cfg.Language))
	evaluator, err := newEvaluator(ctx, cfg)
	if err != nil {
		return err
	}

	results := evaluator.EvaluateAll(ctx, questions, answers)
	score, total := report.Score(results)

	quizFile := filepath.Base(v.GetString("questions"))
	quizName := strings.TrimSuffix(quizFile, filepath.Ext(quizFile))
	gen := report.New(cfg.ResultsDir)
	path, err := gen.Save(quizName, gen.Generate(ctx, quizName, results, score, total))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	fmt.Printf("%s (%d/%d)\n", appI18n.Td(ctx, "ResultsSaved", map[string]any{"Path": path}), score, total)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exports, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

// loadQuizzes reads each quiz file into the quiz catalog, keyed by file
// name without extension.
func loadQuizzes(paths []string) (map[string][]model.Question, error) {
	quizzes := make(map[string][]model.Question, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		questions, err := model.DecodeQuestions(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		quizzes[name] = questions
		slog.Info("loaded quiz", "name", name, "questions", len(questions))
	}
	return quizzes, nil
}
