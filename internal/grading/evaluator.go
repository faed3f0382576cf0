package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
)

// Outcome is the deterministic evaluation of a single answer.
type Outcome struct {
	Points   float64
	Correct  bool
	Feedback string
}

// Evaluator scores a single answer against its question without any AI
// involvement. It is stateless apart from the grading config and safe for
// concurrent use.
type Evaluator struct {
	cfg model.GradingConfig
}

// NewEvaluator creates an evaluator with the given grading config.
func NewEvaluator(cfg model.GradingConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate scores one response. An empty or missing response always yields
// zero points regardless of question type.
func (e *Evaluator) Evaluate(q model.Question, response any) Outcome {
	text := answerText(response)
	if strings.TrimSpace(text) == "" {
		return Outcome{Feedback: "No answer provided"}
	}

	switch q.Type {
	case model.TypeMultipleChoice:
		return e.evaluateChoice(q, text)
	case model.TypeTrueFalse:
		return e.evaluateTrueFalse(q, text)
	case model.TypeNumerical:
		return e.evaluateNumerical(q, text)
	case model.TypeShortAnswer:
		return e.evaluateShortAnswer(q, text)
	case model.TypeEssay:
		return e.evaluateEssay(q, text)
	case model.TypeCode:
		return e.evaluateCode(q, text)
	}
	return Outcome{Feedback: fmt.Sprintf("Unknown question type: %s", q.Type)}
}

func (e *Evaluator) evaluateChoice(q model.Question, student string) Outcome {
	correct := strings.TrimSpace(answerText(q.CorrectAnswer))
	student = strings.TrimSpace(student)
	if !e.cfg.CaseSensitive {
		correct = strings.ToLower(correct)
		student = strings.ToLower(student)
	}

	if correct == student {
		return Outcome{Points: q.Points, Correct: true, Feedback: "Correct!"}
	}
	return Outcome{Feedback: fmt.Sprintf("Incorrect. The correct answer is: %v", q.CorrectAnswer)}
}

var truthSynonyms = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true, "correct": true,
	"false": false, "f": false, "no": false, "n": false, "0": false, "incorrect": false,
}

func (e *Evaluator) evaluateTrueFalse(q model.Question, student string) Outcome {
	correctBool, ok := truthSynonyms[strings.ToLower(strings.TrimSpace(answerText(q.CorrectAnswer)))]
	if !ok {
		return Outcome{Feedback: "Invalid correct answer format"}
	}
	studentBool, ok := truthSynonyms[strings.ToLower(strings.TrimSpace(student))]
	if !ok {
		return Outcome{Feedback: "Invalid answer format. Please answer True or False"}
	}

	if correctBool == studentBool {
		return Outcome{Points: q.Points, Correct: true, Feedback: "Correct!"}
	}
	return Outcome{Feedback: fmt.Sprintf("Incorrect. The correct answer is: %v", q.CorrectAnswer)}
}

func (e *Evaluator) evaluateNumerical(q model.Question, student string) Outcome {
	correct, err1 := parseNumber(answerText(q.CorrectAnswer))
	value, err2 := parseNumber(student)
	if err1 != nil || err2 != nil {
		return Outcome{Feedback: "Invalid numerical format"}
	}

	diff := math.Abs(correct - value)
	tolerance := math.Abs(correct * q.Tolerance(0.01))

	switch {
	case diff <= tolerance:
		return Outcome{Points: q.Points, Correct: true, Feedback: "Correct!"}
	case diff <= 2*tolerance && e.cfg.EnablePartialCredit:
		return Outcome{
			Points:   q.Points * 0.5,
			Feedback: fmt.Sprintf("Close! The exact answer is %v", correct),
		}
	default:
		return Outcome{Feedback: fmt.Sprintf("Incorrect. The correct answer is: %v", correct)}
	}
}

func (e *Evaluator) evaluateShortAnswer(q model.Question, student string) Outcome {
	correct := normalizeText(answerText(q.CorrectAnswer), e.cfg.CaseSensitive, e.cfg.IgnoreWhitespace)
	student = normalizeText(student, e.cfg.CaseSensitive, e.cfg.IgnoreWhitespace)

	if correct == student {
		return Outcome{Points: q.Points, Correct: true, Feedback: "Correct!"}
	}

	if e.cfg.EnablePartialCredit {
		switch ratio := similarity(correct, student); {
		case ratio >= 0.95:
			return Outcome{Points: q.Points, Correct: true, Feedback: "Correct!"}
		case ratio >= e.cfg.SpellingTolerance:
			// High credit for a near-miss, but deliberately not marked correct:
			// accuracy statistics key off IsCorrect, not the point value.
			return Outcome{
				Points:   q.Points * 0.8,
				Feedback: "Mostly correct, minor differences from expected answer",
			}
		case ratio >= 0.6:
			return Outcome{
				Points:   q.Points * 0.5,
				Feedback: "Partially correct, but missing key elements",
			}
		}
	}

	return Outcome{Feedback: fmt.Sprintf("Incorrect. Expected: %v", q.CorrectAnswer)}
}

func (e *Evaluator) evaluateEssay(q model.Question, student string) Outcome {
	wordCount := len(strings.Fields(student))
	if wordCount < e.cfg.MinEssayLength {
		return Outcome{
			Feedback: fmt.Sprintf("Answer too short. Minimum %d words required", e.cfg.MinEssayLength),
		}
	}
	// The deterministic path never certifies an essay as correct.
	return Outcome{
		Points:   q.Points * 0.5,
		Feedback: "Essay submitted. Detailed grading requires AI evaluation",
	}
}

func (e *Evaluator) evaluateCode(q model.Question, student string) Outcome {
	code := strings.TrimSpace(student)
	if utf8.RuneCountInString(code) < 10 {
		return Outcome{Feedback: "Code submission too short"}
	}

	language, _ := q.Metadata["language"].(string)
	if err := checkSyntax(language, code); err != nil {
		return Outcome{Feedback: fmt.Sprintf("Syntax error: %v", err)}
	}
	return Outcome{
		Points:   q.Points * 0.3,
		Feedback: "Code syntax valid. Full evaluation requires execution",
	}
}

// answerText renders an untyped answer payload as a string for comparison.
func answerText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
