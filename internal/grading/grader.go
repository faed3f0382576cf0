package grading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
)

// OracleRequest carries everything the AI oracle needs to score one answer.
type OracleRequest struct {
	QuestionText   string
	QuestionType   model.QuestionType
	CorrectAnswer  any
	StudentAnswer  any
	PointsPossible float64
	Rubric         string
	Strictness     float64
}

// OracleResult is the oracle's verdict for one answer.
type OracleResult struct {
	PointsEarned float64
	IsCorrect    bool
	Feedback     string
	Analysis     *model.Analysis
	Suggestions  []string
}

// QuestionSummary is the simplified per-question view passed to the oracle
// when requesting overall narrative feedback.
type QuestionSummary struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Score      string `json:"score"`
}

// FeedbackRequest asks the oracle for free-text narrative feedback over a
// whole graded submission.
type FeedbackRequest struct {
	ExamTitle  string
	TotalScore float64
	MaxScore   float64
	Results    []QuestionSummary
}

// Oracle is the AI scoring collaborator. Implementations are treated as
// unreliable: every error, timeout, or malformed payload is absorbed at the
// call site and grading falls back to the deterministic result.
type Oracle interface {
	GradeAnswer(ctx context.Context, req OracleRequest) (*OracleResult, error)
	OverallFeedback(ctx context.Context, req FeedbackRequest) (string, error)
}

// DefaultOracleTimeout bounds a single oracle call.
const DefaultOracleTimeout = 60 * time.Second

// Grader grades submissions against one exam. It holds no mutable state, so
// a single Grader may grade distinct submissions concurrently.
type Grader struct {
	exam          model.Exam
	eval          *Evaluator
	oracle        Oracle
	oracleTimeout time.Duration
}

// Option configures a Grader.
type Option func(*Grader)

// WithOracle attaches an AI scoring oracle. Without one, grading is purely
// deterministic regardless of the exam config.
func WithOracle(o Oracle) Option {
	return func(g *Grader) { g.oracle = o }
}

// WithOracleTimeout overrides the per-call oracle timeout.
func WithOracleTimeout(d time.Duration) Option {
	return func(g *Grader) { g.oracleTimeout = d }
}

// New validates the exam and builds a grader for it.
func New(exam model.Exam, opts ...Option) (*Grader, error) {
	if err := exam.Validate(); err != nil {
		return nil, fmt.Errorf("invalid exam: %w", err)
	}
	g := &Grader{
		exam:          exam,
		eval:          NewEvaluator(exam.Config),
		oracleTimeout: DefaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Grader) aiEnabled() bool {
	return g.exam.Config.AIGradingEnabled && g.oracle != nil
}

// GradeSubmission grades one submission and returns a fresh ExamResult with
// exactly one GradingResult per exam question, in the exam's declared order.
func (g *Grader) GradeSubmission(ctx context.Context, sub model.Submission) model.ExamResult {
	results := make([]model.GradingResult, 0, len(g.exam.Questions))
	for _, q := range g.exam.Questions {
		answer, ok := sub.Answer(q.ID)
		if !ok {
			// The oracle is never consulted for unanswered questions.
			results = append(results, model.GradingResult{
				QuestionID:     q.ID,
				CorrectAnswer:  q.CorrectAnswer,
				PointsPossible: q.Points,
				Feedback:       "Question not answered",
			})
			continue
		}
		results = append(results, g.gradeAnswer(ctx, q, answer.Response))
	}

	var totalEarned float64
	for _, r := range results {
		totalEarned += r.PointsEarned
	}

	result := model.ExamResult{
		StudentID:           sub.StudentID,
		StudentName:         sub.StudentName,
		ExamID:              g.exam.ID,
		QuestionResults:     results,
		TotalPointsEarned:   totalEarned,
		TotalPointsPossible: g.exam.TotalPoints(),
		TypeBreakdown:       g.typeBreakdown(results),
		GradedAt:            time.Now(),
	}
	result.OverallFeedback = g.overallFeedback(ctx, result)
	return result
}

// GradeBatch grades submissions one by one. Submissions are independent;
// a problem with one never aborts the rest.
func (g *Grader) GradeBatch(ctx context.Context, subs []model.Submission) []model.ExamResult {
	results := make([]model.ExamResult, 0, len(subs))
	for i, sub := range subs {
		slog.Info("grading submission",
			"student", sub.StudentName,
			"progress", fmt.Sprintf("%d/%d", i+1, len(subs)),
		)
		results = append(results, g.GradeSubmission(ctx, sub))
	}
	return results
}

func (g *Grader) gradeAnswer(ctx context.Context, q model.Question, response any) model.GradingResult {
	out := g.eval.Evaluate(q, response)
	det := model.GradingResult{
		QuestionID:     q.ID,
		StudentAnswer:  response,
		CorrectAnswer:  q.CorrectAnswer,
		PointsEarned:   out.Points,
		PointsPossible: q.Points,
		IsCorrect:      out.Correct,
		Feedback:       out.Feedback,
	}

	if !g.aiEnabled() || !needsOracle(q.Type, out.Correct) {
		return det
	}

	octx, cancel := context.WithTimeout(ctx, g.oracleTimeout)
	defer cancel()
	res, err := g.oracle.GradeAnswer(octx, OracleRequest{
		QuestionText:   q.Text,
		QuestionType:   q.Type,
		CorrectAnswer:  q.CorrectAnswer,
		StudentAnswer:  response,
		PointsPossible: q.Points,
		Rubric:         q.Rubric,
		Strictness:     g.exam.Config.Strictness,
	})
	if err != nil {
		slog.Warn("AI grading failed, keeping deterministic result",
			"question", q.ID, "error", err)
	}
	return combine(det, res, err)
}

// needsOracle reports whether a deterministic outcome should be escalated:
// subjective types always are, objective ones only when not already correct.
func needsOracle(t model.QuestionType, correct bool) bool {
	return t == model.TypeEssay || t == model.TypeCode || !correct
}

// combine merges an oracle verdict into the deterministic result. A
// successful verdict fully replaces score, correctness, and feedback; any
// failure leaves the deterministic result untouched.
func combine(det model.GradingResult, oracle *OracleResult, err error) model.GradingResult {
	if err != nil || oracle == nil {
		return det
	}
	out := det
	out.PointsEarned = clamp(oracle.PointsEarned, 0, det.PointsPossible)
	out.IsCorrect = oracle.IsCorrect
	out.Feedback = oracle.Feedback
	out.Analysis = oracle.Analysis
	out.Suggestions = oracle.Suggestions
	return out
}

func (g *Grader) typeBreakdown(results []model.GradingResult) map[model.QuestionType]model.TypeStats {
	breakdown := make(map[model.QuestionType]model.TypeStats)
	for _, r := range results {
		q, ok := g.exam.Question(r.QuestionID)
		if !ok {
			continue
		}
		stats := breakdown[q.Type]
		stats.Total++
		if r.IsCorrect {
			stats.Correct++
		}
		stats.PointsEarned += r.PointsEarned
		stats.PointsPossible += r.PointsPossible
		breakdown[q.Type] = stats
	}
	return breakdown
}

// overallFeedback builds the submission-level feedback: a deterministic band
// summary, optionally followed by the oracle's narrative. The summary is
// never dropped; an unreachable oracle yields an explicit notice instead.
func (g *Grader) overallFeedback(ctx context.Context, result model.ExamResult) string {
	pct := result.PercentageScore()
	summary := fmt.Sprintf("Score: %.1f/%.1f (%.1f%%). %s",
		result.TotalPointsEarned, result.TotalPointsPossible, pct, performanceText(pct))

	if !g.aiEnabled() {
		return summary
	}

	summaries := make([]QuestionSummary, 0, len(result.QuestionResults))
	for _, r := range result.QuestionResults {
		summaries = append(summaries, QuestionSummary{
			QuestionID: r.QuestionID,
			Correct:    r.IsCorrect,
			Score:      fmt.Sprintf("%g/%g", r.PointsEarned, r.PointsPossible),
		})
	}

	octx, cancel := context.WithTimeout(ctx, g.oracleTimeout)
	defer cancel()
	narrative, err := g.oracle.OverallFeedback(octx, FeedbackRequest{
		ExamTitle:  g.exam.Title,
		TotalScore: result.TotalPointsEarned,
		MaxScore:   result.TotalPointsPossible,
		Results:    summaries,
	})
	if err != nil {
		slog.Warn("AI overall feedback failed", "student", result.StudentID, "error", err)
		return summary + "\n\nAI feedback unavailable at this time."
	}
	return summary + "\n\n" + narrative
}

func performanceText(pct float64) string {
	switch {
	case pct >= 90:
		return "Excellent work!"
	case pct >= 80:
		return "Good job!"
	case pct >= 70:
		return "Satisfactory performance."
	case pct >= 60:
		return "Passing, but there's room for improvement."
	default:
		return "Additional study recommended."
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
