package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/ai"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/analytics"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/export"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/grading"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/handler"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examgrader",
		Short: "Exam grading and feedback service with optional AI scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd(), analyzeCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examgrader.db", "SQLite database path")
	f.String("openai-url", "", "OpenAI-compatible API base URL (empty for the public API)")
	f.String("openai-key", "", "OpenAI API key (or set EXAMGRADER_OPENAI_KEY)")
	f.String("openai-model", ai.DefaultModel, "Model used for AI grading")
	addLoggingFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade student submissions from JSON files",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("exam", "", "Path to exam JSON file (required)")
	f.String("submissions", "", "Path to submissions JSON file (required)")
	f.StringP("output", "o", "exam_results", "Output directory for result exports")
	f.Bool("no-ai", false, "Disable AI grading")
	f.String("openai-url", "", "OpenAI-compatible API base URL")
	f.String("openai-key", "", "OpenAI API key (or set EXAMGRADER_OPENAI_KEY)")
	f.String("openai-model", ai.DefaultModel, "Model used for AI grading")
	addLoggingFlags(cmd)

	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("submissions")

	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Generate a class analysis report from grading results",
		RunE:  runAnalyze,
	}
	f := cmd.Flags()
	f.String("exam", "", "Path to exam JSON file (required)")
	f.String("results", "", "Path to results JSON file (required)")
	f.StringP("output", "o", "-", "Output file for the report (- for stdout)")
	addLoggingFlags(cmd)

	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("results")

	return cmd
}

func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("EXAMGRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgrader")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgrader")
	v.AddConfigPath("/etc/examgrader")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newOracle builds the AI client from config, or returns nil when no API key
// is configured.
func newOracle(v *viper.Viper) (grading.Oracle, string) {
	key := v.GetString("openai-key")
	modelName := v.GetString("openai-model")
	if key == "" {
		return nil, modelName
	}
	client, err := ai.New(v.GetString("openai-url"), key, modelName)
	if err != nil {
		slog.Warn("AI grading disabled", "error", err)
		return nil, modelName
	}
	return client, modelName
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	oracle, modelName := newOracle(v)
	if oracle == nil {
		slog.Info("no OpenAI key configured, grading is deterministic only")
	}

	h := handler.New(db, oracle, modelName)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"model", modelName,
		"ai_enabled", oracle != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	exam, err := loadExam(v.GetString("exam"))
	if err != nil {
		return err
	}
	slog.Info("loaded exam",
		"title", exam.Title,
		"questions", len(exam.Questions),
		"total_points", exam.TotalPoints(),
	)

	submissions, err := loadSubmissions(v.GetString("submissions"))
	if err != nil {
		return err
	}
	slog.Info("loaded submissions", "count", len(submissions))

	var opts []grading.Option
	if v.GetBool("no-ai") {
		slog.Info("AI grading disabled by flag")
	} else if oracle, _ := newOracle(v); oracle != nil {
		opts = append(opts, grading.WithOracle(oracle))
	} else {
		slog.Warn("no API key provided, AI grading disabled")
	}

	grader, err := grading.New(*exam, opts...)
	if err != nil {
		return fmt.Errorf("create grader: %w", err)
	}
	results := grader.GradeBatch(context.Background(), submissions)

	outputDir := v.GetString("output")
	if err := export.All(outputDir, *exam, results); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	slog.Info("grading complete", "results", len(results), "output", outputDir)

	// Print a class summary so batch runs are useful without opening files.
	fmt.Println(analytics.New(*exam, results).Report())
	return nil
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	exam, err := loadExam(v.GetString("exam"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(v.GetString("results"))
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	var results []model.ExamResult
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("parse results: %w", err)
	}

	report := analytics.New(*exam, results).Report()

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
	if _, err := io.WriteString(w, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func loadExam(path string) (*model.Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exam: %w", err)
	}
	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return nil, fmt.Errorf("parse exam: %w", err)
	}
	if exam.Config == (model.GradingConfig{}) {
		exam.Config = model.DefaultGradingConfig()
	}
	if err := exam.Validate(); err != nil {
		return nil, fmt.Errorf("validate exam: %w", err)
	}
	return &exam, nil
}

func loadSubmissions(path string) ([]model.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}
	var submissions []model.Submission
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("parse submissions: %w", err)
	}
	return submissions, nil
}
