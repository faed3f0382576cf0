package model

import (
	"errors"
	"fmt"
	"time"
)

// QuestionType identifies one of the six supported question kinds.
// The set is closed: grading dispatches over exactly these variants.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
	TypeCode           QuestionType = "code"
	TypeNumerical      QuestionType = "numerical"
	TypeTrueFalse      QuestionType = "true_false"
)

// QuestionTypes lists all supported types in a stable order.
var QuestionTypes = []QuestionType{
	TypeMultipleChoice,
	TypeShortAnswer,
	TypeEssay,
	TypeCode,
	TypeNumerical,
	TypeTrueFalse,
}

// Valid reports whether t is one of the six supported types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeShortAnswer, TypeEssay, TypeCode, TypeNumerical, TypeTrueFalse:
		return true
	}
	return false
}

// Difficulty represents a question's authored difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question represents a single exam question.
//
// CorrectAnswer is an untyped payload: a string for choice/text questions, a
// number (or numeric string) for numerical ones. Metadata carries optional
// per-question knobs such as "tolerance" for numerical grading.
type Question struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Type          QuestionType   `json:"type"`
	Points        float64        `json:"points"`
	CorrectAnswer any            `json:"correct_answer"`
	Difficulty    Difficulty     `json:"difficulty,omitempty"`
	Topics        []string       `json:"topics,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
	Rubric        string         `json:"rubric,omitempty"`
	Options       []string       `json:"options,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Tolerance returns the relative numeric tolerance for this question,
// falling back to def when metadata carries none.
func (q Question) Tolerance(def float64) float64 {
	if q.Metadata == nil {
		return def
	}
	switch v := q.Metadata["tolerance"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Validate checks a single question's structural constraints.
func (q Question) Validate() error {
	var errs []error
	if q.ID == "" {
		errs = append(errs, errors.New("question ID must not be empty"))
	}
	if !q.Type.Valid() {
		errs = append(errs, fmt.Errorf("question %s: unknown type %q", q.ID, q.Type))
	}
	if q.Points <= 0 {
		errs = append(errs, fmt.Errorf("question %s: points must be positive", q.ID))
	}
	if q.Type == TypeMultipleChoice && len(q.Options) < 2 {
		errs = append(errs, fmt.Errorf("question %s: multiple choice requires at least 2 options", q.ID))
	}
	return errors.Join(errs...)
}

// GradingConfig holds the tunable scoring policy for an exam.
type GradingConfig struct {
	Strictness          float64 `json:"strictness"` // 0.0 (lenient) to 1.0 (strict)
	EnablePartialCredit bool    `json:"enable_partial_credit"`
	CaseSensitive       bool    `json:"case_sensitive"`
	IgnoreWhitespace    bool    `json:"ignore_whitespace"`
	SpellingTolerance   float64 `json:"spelling_tolerance"` // similarity threshold for near-misses
	AIGradingEnabled    bool    `json:"ai_grading_enabled"`
	MinEssayLength      int     `json:"min_essay_length"` // minimum word count for essays
}

// DefaultGradingConfig returns the standard grading policy.
func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		Strictness:          0.7,
		EnablePartialCredit: true,
		CaseSensitive:       false,
		IgnoreWhitespace:    true,
		SpellingTolerance:   0.85,
		AIGradingEnabled:    true,
		MinEssayLength:      50,
	}
}

// Validate checks that config values are within their documented ranges.
func (c GradingConfig) Validate() error {
	var errs []error
	if c.Strictness < 0 || c.Strictness > 1 {
		errs = append(errs, errors.New("strictness must be between 0 and 1"))
	}
	if c.SpellingTolerance < 0 || c.SpellingTolerance > 1 {
		errs = append(errs, errors.New("spelling tolerance must be between 0 and 1"))
	}
	if c.MinEssayLength < 0 {
		errs = append(errs, errors.New("min essay length must not be negative"))
	}
	return errors.Join(errs...)
}

// Exam represents a complete exam with questions and grading configuration.
// Exams are constructed once, validated, and treated as immutable afterwards.
type Exam struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Questions    []Question    `json:"questions"`
	Config       GradingConfig `json:"grading_config"`
	PassingScore float64       `json:"passing_score"` // percentage threshold
	DurationMin  int           `json:"duration_minutes,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
}

// TotalPoints returns the sum of all question points.
func (e Exam) TotalPoints() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// Question returns the question with the given ID, or false if absent.
func (e Exam) Question(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionsByType returns all questions of the given type.
func (e Exam) QuestionsByType(t QuestionType) []Question {
	var out []Question
	for _, q := range e.Questions {
		if q.Type == t {
			out = append(out, q)
		}
	}
	return out
}

// Validate checks exam-level invariants before grading may start.
func (e Exam) Validate() error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("exam ID must not be empty"))
	}
	if len(e.Questions) == 0 {
		errs = append(errs, errors.New("exam must have at least one question"))
	}
	seen := make(map[string]bool, len(e.Questions))
	for _, q := range e.Questions {
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("duplicate question ID: %s", q.ID))
		}
		seen[q.ID] = true
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.PassingScore < 0 || e.PassingScore > 100 {
		errs = append(errs, errors.New("passing score must be between 0 and 100"))
	}
	if err := e.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Answer represents a student's answer to one question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Response   any    `json:"response"`
	TimeSpent  int    `json:"time_spent,omitempty"` // seconds
}

// Submission represents a complete student exam submission.
type Submission struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	ExamID      string    `json:"exam_id"`
	Answers     []Answer  `json:"answers"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// Answer returns the submission's answer for the given question, or false if
// the question was not answered.
func (s Submission) Answer(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Analysis holds structured feedback produced by the AI oracle.
type Analysis struct {
	Strengths      []string `json:"strengths,omitempty"`
	Weaknesses     []string `json:"weaknesses,omitempty"`
	Misconceptions []string `json:"misconceptions,omitempty"`
}

// GradingResult is the scoring outcome for a single question.
type GradingResult struct {
	QuestionID     string    `json:"question_id"`
	StudentAnswer  any       `json:"student_answer,omitempty"`
	CorrectAnswer  any       `json:"correct_answer,omitempty"`
	PointsEarned   float64   `json:"points_earned"`
	PointsPossible float64   `json:"points_possible"`
	IsCorrect      bool      `json:"is_correct"`
	Feedback       string    `json:"feedback"`
	Analysis       *Analysis `json:"analysis,omitempty"`
	Suggestions    []string  `json:"suggestions,omitempty"`
}

// Percentage returns the result's score as a percentage of its question.
func (r GradingResult) Percentage() float64 {
	if r.PointsPossible == 0 {
		return 0
	}
	return r.PointsEarned / r.PointsPossible * 100
}

// TypeStats aggregates per-question-type performance within one submission.
type TypeStats struct {
	Total          int     `json:"total"`
	Correct        int     `json:"correct"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
}

// ExamResult is the complete grading outcome for one submission. It contains
// exactly one GradingResult per exam question, in the exam's declared order.
type ExamResult struct {
	StudentID           string                     `json:"student_id"`
	StudentName         string                     `json:"student_name"`
	ExamID              string                     `json:"exam_id"`
	QuestionResults     []GradingResult            `json:"question_results"`
	TotalPointsEarned   float64                    `json:"total_points_earned"`
	TotalPointsPossible float64                    `json:"total_points_possible"`
	OverallFeedback     string                     `json:"overall_feedback"`
	TypeBreakdown       map[QuestionType]TypeStats `json:"type_breakdown,omitempty"`
	GradedAt            time.Time                  `json:"graded_at"`
}

// PercentageScore returns the overall score as a percentage.
func (r ExamResult) PercentageScore() float64 {
	if r.TotalPointsPossible == 0 {
		return 0
	}
	return r.TotalPointsEarned / r.TotalPointsPossible * 100
}

// GradeLetter converts the percentage score to a letter grade. The bands are
// fixed (90/80/70/60) and independent of the exam's passing score.
func (r ExamResult) GradeLetter() string {
	return LetterForPercentage(r.PercentageScore())
}

// LetterForPercentage maps a percentage to its letter grade band.
func LetterForPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}

// QuestionResult returns the result for the given question, or false if this
// exam result carries none for it.
func (r ExamResult) QuestionResult(questionID string) (GradingResult, bool) {
	for _, qr := range r.QuestionResults {
		if qr.QuestionID == questionID {
			return qr, true
		}
	}
	return GradingResult{}, false
}
