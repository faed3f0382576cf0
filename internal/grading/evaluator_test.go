package grading

import (
	"strings"
	"testing"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
)

func question(typ model.QuestionType, points float64, correct any) model.Question {
	return model.Question{
		ID:            "q1",
		Text:          "test question",
		Type:          typ,
		Points:        points,
		CorrectAnswer: correct,
	}
}

func TestEvaluateEmptyResponse(t *testing.T) {
	e := NewEvaluator(model.DefaultGradingConfig())
	for _, typ := range model.QuestionTypes {
		t.Run(string(typ), func(t *testing.T) {
			for _, resp := range []any{nil, "", "   "} {
				out := e.Evaluate(question(typ, 10, "x"), resp)
				if out.Points != 0 || out.Correct || out.Feedback != "No answer provided" {
					t.Errorf("Evaluate(%v, %#v) = %+v, want zero no-answer outcome", typ, resp, out)
				}
			}
		})
	}
}

func TestEvaluateMultipleChoice(t *testing.T) {
	tests := []struct {
		name       string
		config     func(*model.GradingConfig)
		response   string
		wantPoints float64
		wantOK     bool
	}{
		{"exact match", nil, "C", 10, true},
		{"wrong option", nil, "A", 0, false},
		{"case folded", nil, "c", 10, true},
		{"surrounding spaces", nil, "  C  ", 10, true},
		{"case sensitive mismatch", func(c *model.GradingConfig) { c.CaseSensitive = true }, "c", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultGradingConfig()
			if tt.config != nil {
				tt.config(&cfg)
			}
			out := NewEvaluator(cfg).Evaluate(question(model.TypeMultipleChoice, 10, "C"), tt.response)
			if out.Points != tt.wantPoints || out.Correct != tt.wantOK {
				t.Errorf("Evaluate(%q) = %+v, want points=%v correct=%v", tt.response, out, tt.wantPoints, tt.wantOK)
			}
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	e := NewEvaluator(model.DefaultGradingConfig())
	q := question(model.TypeTrueFalse, 5, "True")

	tests := []struct {
		response   string
		wantPoints float64
		wantOK     bool
	}{
		{"yes", 5, true},
		{"y", 5, true},
		{"TRUE", 5, true},
		{"1", 5, true},
		{"false", 0, false},
		{"no", 0, false},
		{"0", 0, false},
	}
	for _, tt := range tests {
		out := e.Evaluate(q, tt.response)
		if out.Points != tt.wantPoints || out.Correct != tt.wantOK {
			t.Errorf("Evaluate(%q) = %+v, want points=%v correct=%v", tt.response, out, tt.wantPoints, tt.wantOK)
		}
	}

	t.Run("unmappable response", func(t *testing.T) {
		out := e.Evaluate(q, "maybe")
		if out.Points != 0 || out.Correct {
			t.Fatalf("Evaluate(maybe) = %+v, want zero incorrect", out)
		}
		if !strings.Contains(out.Feedback, "Invalid answer format") {
			t.Errorf("feedback %q should flag invalid format", out.Feedback)
		}
	})

	t.Run("unmappable correct answer", func(t *testing.T) {
		out := e.Evaluate(question(model.TypeTrueFalse, 5, "perhaps"), "true")
		if out.Points != 0 || !strings.Contains(out.Feedback, "Invalid correct answer format") {
			t.Errorf("Evaluate = %+v, want invalid correct answer format", out)
		}
	})
}

func TestEvaluateNumerical(t *testing.T) {
	q := question(model.TypeNumerical, 10, 42)

	tests := []struct {
		name          string
		partialCredit bool
		response      string
		wantPoints    float64
		wantOK        bool
	}{
		{"exact", true, "42", 10, true},
		{"within tolerance", true, "42.3", 10, true}, // |diff|=0.3 <= 0.42
		{"twice tolerance partial", true, "42.5", 5, false},
		{"twice tolerance no partial", false, "42.5", 0, false},
		{"way off", true, "100", 0, false},
		{"negative way off", true, "-42", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultGradingConfig()
			cfg.EnablePartialCredit = tt.partialCredit
			out := NewEvaluator(cfg).Evaluate(q, tt.response)
			if out.Points != tt.wantPoints || out.Correct != tt.wantOK {
				t.Errorf("Evaluate(%q) = %+v, want points=%v correct=%v", tt.response, out, tt.wantPoints, tt.wantOK)
			}
		})
	}

	t.Run("unparseable response", func(t *testing.T) {
		out := NewEvaluator(model.DefaultGradingConfig()).Evaluate(q, "forty-two")
		if out.Points != 0 || out.Correct || !strings.Contains(out.Feedback, "Invalid numerical format") {
			t.Errorf("Evaluate(forty-two) = %+v, want invalid format", out)
		}
	})

	t.Run("metadata tolerance", func(t *testing.T) {
		loose := question(model.TypeNumerical, 10, 100)
		loose.Metadata = map[string]any{"tolerance": 0.1}
		out := NewEvaluator(model.DefaultGradingConfig()).Evaluate(loose, "109")
		if !out.Correct {
			t.Errorf("Evaluate(109) with 10%% tolerance = %+v, want correct", out)
		}
	})
}

func TestEvaluateShortAnswer(t *testing.T) {
	tests := []struct {
		name       string
		correct    string
		response   string
		wantPoints float64
		wantOK     bool
	}{
		{"exact", "photosynthesis", "photosynthesis", 10, true},
		{"case and spacing folded", "the mitochondria", "  The   Mitochondria ", 10, true},
		// ratio 42/43 > 0.95: treated as correct.
		{"trivially close", "alpha beta gamma delta", "alpha beta gamma delt", 10, true},
		// ratio 26/28 ~ 0.93: above spelling tolerance, 80% but not correct.
		{"misspelled", "photosynthesis", "photosinthesis", 8, false},
		// ratio 26/31 ~ 0.84: in the 0.6 band, half credit.
		{"missing element", "binary search tree", "binary search", 5, false},
		{"unrelated", "photosynthesis", "gravity", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewEvaluator(model.DefaultGradingConfig()).
				Evaluate(question(model.TypeShortAnswer, 10, tt.correct), tt.response)
			if out.Points != tt.wantPoints || out.Correct != tt.wantOK {
				t.Errorf("Evaluate(%q vs %q) = %+v, want points=%v correct=%v",
					tt.correct, tt.response, out, tt.wantPoints, tt.wantOK)
			}
		})
	}

	t.Run("no partial credit disables fuzzy bands", func(t *testing.T) {
		cfg := model.DefaultGradingConfig()
		cfg.EnablePartialCredit = false
		out := NewEvaluator(cfg).Evaluate(question(model.TypeShortAnswer, 10, "photosynthesis"), "photosinthesis")
		if out.Points != 0 || out.Correct {
			t.Errorf("Evaluate with partial credit off = %+v, want zero", out)
		}
	})
}

func TestEvaluateEssay(t *testing.T) {
	cfg := model.DefaultGradingConfig()
	cfg.MinEssayLength = 50
	e := NewEvaluator(cfg)
	q := question(model.TypeEssay, 20, nil)

	t.Run("too short", func(t *testing.T) {
		out := e.Evaluate(q, strings.Repeat("word ", 10))
		if out.Points != 0 || out.Correct {
			t.Fatalf("10-word essay = %+v, want zero", out)
		}
		if !strings.Contains(out.Feedback, "too short") {
			t.Errorf("feedback %q should say too short", out.Feedback)
		}
	})

	t.Run("long enough gets provisional half credit", func(t *testing.T) {
		out := e.Evaluate(q, strings.Repeat("word ", 60))
		if out.Points != 10 || out.Correct {
			t.Errorf("60-word essay = %+v, want 10 points, not correct", out)
		}
	})
}

func TestEvaluateCode(t *testing.T) {
	e := NewEvaluator(model.DefaultGradingConfig())

	t.Run("too short", func(t *testing.T) {
		out := e.Evaluate(question(model.TypeCode, 10, nil), "x := 1")
		if out.Points != 0 || !strings.Contains(out.Feedback, "too short") {
			t.Errorf("short code = %+v, want too-short", out)
		}
	})

	t.Run("valid go code", func(t *testing.T) {
		q := question(model.TypeCode, 10, nil)
		q.Metadata = map[string]any{"language": "go"}
		out := e.Evaluate(q, "func add(a, b int) int { return a + b }")
		if out.Points != 3 || out.Correct {
			t.Errorf("valid go = %+v, want 3 points, not correct", out)
		}
	})

	t.Run("broken go code", func(t *testing.T) {
		q := question(model.TypeCode, 10, nil)
		q.Metadata = map[string]any{"language": "go"}
		out := e.Evaluate(q, "func add(a, b int int { return a + b")
		if out.Points != 0 || !strings.Contains(out.Feedback, "Syntax error") {
			t.Errorf("broken go = %+v, want syntax error", out)
		}
	})

	t.Run("generic language delimiter check", func(t *testing.T) {
		out := e.Evaluate(question(model.TypeCode, 10, nil), "print('hello world')")
		if out.Points != 3 {
			t.Errorf("balanced generic code = %+v, want 3 points", out)
		}
		out = e.Evaluate(question(model.TypeCode, 10, nil), "print('hello world'")
		if out.Points != 0 || !strings.Contains(out.Feedback, "Syntax error") {
			t.Errorf("unbalanced generic code = %+v, want syntax error", out)
		}
	})
}

func TestCheckDelimiters(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{"balanced", "if (a[0] == b) { c() }", false},
		{"bracket inside string", `s = "unmatched ( inside"`, false},
		{"escaped quote", `s = "say \"hi\""`, false},
		{"unclosed paren", "f(a, b", true},
		{"stray closer", "f(a))", true},
		{"mismatched pair", "f(a]", true},
		{"unterminated string", `s = "oops`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDelimiters(tt.src)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkDelimiters(%q) = %v, wantErr=%v", tt.src, err, tt.wantErr)
			}
		})
	}
}
