// Package handler exposes the grading service as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/analytics"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/grading"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	oracle    grading.Oracle // nil when AI grading is not configured
	modelName string
}

// New creates a new Handler. oracle may be nil; grading then stays fully
// deterministic.
func New(s *store.Store, oracle grading.Oracle, modelName string) *Handler {
	return &Handler{store: s, oracle: oracle, modelName: modelName}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/health", h.handleHealth)
	r.Get("/api/exams", h.handleListExams)
	r.Post("/api/exams", h.handleCreateExam)
	r.Get("/api/exams/{examID}", h.handleGetExam)
	r.Post("/api/submissions", h.handleCreateSubmission)
	r.Post("/api/grade", h.handleGrade)
	r.Get("/api/analytics/{examID}", h.handleAnalytics)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"storage":       "sqlite",
		"ai_configured": h.oracle != nil,
		"model":         h.modelName,
	})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exams == nil {
		exams = []store.ExamSummary{}
	}
	respondJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var exam model.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode exam: %w", err))
		return
	}
	if exam.Config == (model.GradingConfig{}) {
		exam.Config = model.DefaultGradingConfig()
	}
	if err := exam.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.store.SaveExam(exam); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":        "Exam created successfully",
		"exam_id":        exam.ID,
		"question_count": len(exam.Questions),
		"total_points":   exam.TotalPoints(),
	})
}

// questionView is the student-facing question shape: no correct answers,
// rubrics, or grading metadata.
type questionView struct {
	ID      string             `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Points  float64            `json:"points"`
	Options []string           `json:"options,omitempty"`
	Topics  []string           `json:"topics,omitempty"`
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.store.GetExam(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exam == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("exam not found"))
		return
	}

	questions := make([]questionView, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		questions = append(questions, questionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Points:  q.Points,
			Options: q.Options,
			Topics:  q.Topics,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":             exam.ID,
		"title":          exam.Title,
		"description":    exam.Description,
		"subject":        exam.Subject,
		"question_count": len(exam.Questions),
		"total_points":   exam.TotalPoints(),
		"passing_score":  exam.PassingScore,
		"questions":      questions,
	})
}

func (h *Handler) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode submission: %w", err))
		return
	}
	if sub.StudentID == "" || sub.ExamID == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("student_id and exam_id are required"))
		return
	}
	exam, err := h.store.GetExam(sub.ExamID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exam == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("exam not found"))
		return
	}

	id, err := h.store.SaveSubmission(sub)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":       "Submission received",
		"submission_id": id,
	})
}

type gradeRequest struct {
	ExamID      string         `json:"exam_id"`
	StudentID   string         `json:"student_id"`
	StudentName string         `json:"student_name"`
	Answers     []model.Answer `json:"answers"`
	UseAI       *bool          `json:"use_ai,omitempty"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode grade request: %w", err))
		return
	}

	exam, err := h.store.GetExam(req.ExamID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exam == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("exam not found"))
		return
	}

	sub := model.Submission{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ExamID:      req.ExamID,
		Answers:     req.Answers,
		SubmittedAt: time.Now(),
	}
	if _, err := h.store.SaveSubmission(sub); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	// AI grading is opt-out per request and requires a configured oracle.
	useAI := req.UseAI == nil || *req.UseAI
	var opts []grading.Option
	if useAI && h.oracle != nil {
		opts = append(opts, grading.WithOracle(h.oracle))
	}
	grader, err := grading.New(*exam, opts...)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	result := grader.GradeSubmission(r.Context(), sub)
	if err := h.store.SaveResult(result); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"student_id":       result.StudentID,
		"student_name":     result.StudentName,
		"exam_id":          result.ExamID,
		"total_score":      result.TotalPointsEarned,
		"max_score":        result.TotalPointsPossible,
		"percentage":       result.PercentageScore(),
		"grade":            result.GradeLetter(),
		"overall_feedback": result.OverallFeedback,
		"question_results": result.QuestionResults,
		"type_breakdown":   result.TypeBreakdown,
	})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	exam, err := h.store.GetExam(examID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exam == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("exam not found"))
		return
	}

	results, err := h.store.ListResults(examID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if len(results) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"message": "No results yet"})
		return
	}

	a := analytics.New(*exam, results)
	questionStats := a.QuestionStatistics()
	if len(questionStats) > 10 {
		questionStats = questionStats[:10]
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"class_statistics":     a.ClassStatistics(),
		"grade_distribution":   a.GradeDistribution(),
		"question_statistics":  questionStats,
		"common_mistakes":      a.CommonMistakes(5),
		"top_performers":       a.TopPerformers(5),
		"performance_by_topic": a.TopicPerformance(),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
