package model

import (
	"strings"
	"testing"
)

func validQuestion(id string) Question {
	return Question{
		ID:            id,
		Text:          "What is 2+2?",
		Type:          TypeNumerical,
		Points:        5,
		CorrectAnswer: "4",
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Question)
		wantErr string
	}{
		{"valid", func(q *Question) {}, ""},
		{"empty ID", func(q *Question) { q.ID = "" }, "question ID"},
		{"unknown type", func(q *Question) { q.Type = "matching" }, "unknown type"},
		{"zero points", func(q *Question) { q.Points = 0 }, "points must be positive"},
		{"negative points", func(q *Question) { q.Points = -1 }, "points must be positive"},
		{"mcq too few options", func(q *Question) {
			q.Type = TypeMultipleChoice
			q.Options = []string{"A"}
		}, "at least 2 options"},
		{"mcq enough options", func(q *Question) {
			q.Type = TypeMultipleChoice
			q.Options = []string{"A", "B"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion("q1")
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExamValidate(t *testing.T) {
	exam := Exam{
		ID:           "exam-1",
		Title:        "Midterm",
		Questions:    []Question{validQuestion("q1"), validQuestion("q2")},
		Config:       DefaultGradingConfig(),
		PassingScore: 60,
	}
	if err := exam.Validate(); err != nil {
		t.Fatalf("valid exam: %v", err)
	}

	t.Run("no questions", func(t *testing.T) {
		e := exam
		e.Questions = nil
		if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "at least one question") {
			t.Errorf("Validate() = %v, want at-least-one-question error", err)
		}
	})

	t.Run("duplicate IDs", func(t *testing.T) {
		e := exam
		e.Questions = []Question{validQuestion("q1"), validQuestion("q1")}
		if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate question ID") {
			t.Errorf("Validate() = %v, want duplicate-ID error", err)
		}
	})

	t.Run("passing score out of range", func(t *testing.T) {
		e := exam
		e.PassingScore = 101
		if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "passing score") {
			t.Errorf("Validate() = %v, want passing-score error", err)
		}
	})

	t.Run("bad config", func(t *testing.T) {
		e := exam
		e.Config.Strictness = 1.5
		if err := e.Validate(); err == nil || !strings.Contains(err.Error(), "strictness") {
			t.Errorf("Validate() = %v, want strictness error", err)
		}
	})
}

func TestExamTotalPoints(t *testing.T) {
	exam := Exam{Questions: []Question{
		{ID: "q1", Points: 5},
		{ID: "q2", Points: 10},
		{ID: "q3", Points: 2.5},
	}}
	if got := exam.TotalPoints(); got != 17.5 {
		t.Errorf("TotalPoints() = %v, want 17.5", got)
	}
}

func TestQuestionTolerance(t *testing.T) {
	q := Question{Metadata: map[string]any{"tolerance": 0.05}}
	if got := q.Tolerance(0.01); got != 0.05 {
		t.Errorf("Tolerance() = %v, want 0.05", got)
	}
	q = Question{}
	if got := q.Tolerance(0.01); got != 0.01 {
		t.Errorf("Tolerance() default = %v, want 0.01", got)
	}
	// JSON numbers decode as float64; ints can still appear from Go callers.
	q = Question{Metadata: map[string]any{"tolerance": 1}}
	if got := q.Tolerance(0.01); got != 1 {
		t.Errorf("Tolerance() int = %v, want 1", got)
	}
}

func TestSubmissionAnswer(t *testing.T) {
	sub := Submission{Answers: []Answer{
		{QuestionID: "q1", Response: "A"},
		{QuestionID: "q2", Response: "42"},
	}}
	a, ok := sub.Answer("q2")
	if !ok || a.Response != "42" {
		t.Errorf("Answer(q2) = %v, %v", a, ok)
	}
	if _, ok := sub.Answer("q9"); ok {
		t.Error("Answer(q9) should not be found")
	}
}

func TestGradeLetterBands(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"},
		{90.0, "A"},
		{89.999, "B"},
		{80, "B"},
		{79.9, "C"},
		{70, "C"},
		{69.5, "D"},
		{60, "D"},
		{59.999, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := LetterForPercentage(tt.pct); got != tt.want {
			t.Errorf("LetterForPercentage(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestExamResultPercentage(t *testing.T) {
	r := ExamResult{TotalPointsEarned: 45, TotalPointsPossible: 50}
	if got := r.PercentageScore(); got != 90 {
		t.Errorf("PercentageScore() = %v, want 90", got)
	}
	if got := r.GradeLetter(); got != "A" {
		t.Errorf("GradeLetter() = %q, want A", got)
	}
	// Zero possible points must not divide by zero.
	r = ExamResult{}
	if got := r.PercentageScore(); got != 0 {
		t.Errorf("PercentageScore() on empty = %v, want 0", got)
	}
}
