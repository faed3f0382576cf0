// Package ai implements the grading.Oracle interface on top of the OpenAI
// chat completions API. Callers treat this client as unreliable: any error
// it returns makes the grader keep its deterministic result.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/grading"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gpt-4o-mini"

const feedbackMaxTokens = 500

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates an OpenAI grading client. baseURL may be empty for the public
// API; modelName falls back to DefaultModel.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key must be set")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// gradingPayload is the JSON document the model is instructed to return.
type gradingPayload struct {
	PointsEarned *float64 `json:"points_earned"`
	IsCorrect    *bool    `json:"is_correct"`
	Feedback     string   `json:"feedback"`
	Analysis     struct {
		Strengths      []string `json:"strengths"`
		Weaknesses     []string `json:"weaknesses"`
		Misconceptions []string `json:"misconceptions"`
	} `json:"analysis"`
	Suggestions []string `json:"suggestions"`
}

// GradeAnswer asks the model to score one answer and parses its JSON verdict.
func (c *Client) GradeAnswer(ctx context.Context, req grading.OracleRequest) (*grading.OracleResult, error) {
	prompt := buildGradingPrompt(req)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are an expert exam grader. Provide fair, constructive feedback."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("grading API returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("AI grading response", "raw", raw)

	return parseGradingResponse(raw)
}

func parseGradingResponse(raw string) (*grading.OracleResult, error) {
	var payload gradingPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse grading response: %w", err)
	}
	if payload.PointsEarned == nil {
		return nil, fmt.Errorf("grading response missing required field: points_earned")
	}
	if payload.IsCorrect == nil {
		return nil, fmt.Errorf("grading response missing required field: is_correct")
	}
	if payload.Feedback == "" {
		return nil, fmt.Errorf("grading response missing required field: feedback")
	}

	result := &grading.OracleResult{
		PointsEarned: *payload.PointsEarned,
		IsCorrect:    *payload.IsCorrect,
		Feedback:     payload.Feedback,
		Suggestions:  payload.Suggestions,
	}
	a := payload.Analysis
	if len(a.Strengths) > 0 || len(a.Weaknesses) > 0 || len(a.Misconceptions) > 0 {
		result.Analysis = &model.Analysis{
			Strengths:      a.Strengths,
			Weaknesses:     a.Weaknesses,
			Misconceptions: a.Misconceptions,
		}
	}
	return result, nil
}

// OverallFeedback asks the model for a short narrative summary of a graded
// submission.
func (c *Client) OverallFeedback(ctx context.Context, req grading.FeedbackRequest) (string, error) {
	prompt := buildFeedbackPrompt(req)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are an encouraging educator providing constructive feedback."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.5,
		MaxTokens:   feedbackMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("feedback API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("feedback API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildGradingPrompt(req grading.OracleRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an expert exam grader. Grade the following student answer.\n\n")
	sb.WriteString("QUESTION:\n" + req.QuestionText + "\n\n")
	fmt.Fprintf(&sb, "QUESTION TYPE: %s\n", req.QuestionType)
	fmt.Fprintf(&sb, "POINTS POSSIBLE: %v\n\n", req.PointsPossible)
	fmt.Fprintf(&sb, "CORRECT ANSWER:\n%v\n\n", req.CorrectAnswer)
	fmt.Fprintf(&sb, "STUDENT ANSWER:\n%v\n\n", req.StudentAnswer)
	fmt.Fprintf(&sb, "GRADING STRICTNESS: %s (%v/1.0)\n", strictnessLabel(req.Strictness), req.Strictness)

	if req.Rubric != "" {
		sb.WriteString("\nGRADING RUBRIC:\n" + req.Rubric + "\n")
	}

	sb.WriteString("\nProvide your grading in JSON format with these exact keys:\n")
	sb.WriteString(`{
  "points_earned": <number between 0 and points_possible>,
  "is_correct": <true/false>,
  "feedback": "<detailed constructive feedback for the student>",
  "analysis": {
    "strengths": ["<what the student did well>"],
    "weaknesses": ["<what needs improvement>"],
    "misconceptions": ["<any misconceptions identified>"]
  },
  "suggestions": ["<specific suggestions for improvement>"]
}`)
	sb.WriteString("\n\nIMPORTANT GRADING GUIDELINES:\n")
	sb.WriteString("1. For short answers, check for semantic equivalence, not just exact matching\n")
	sb.WriteString("2. Award partial credit when appropriate based on the strictness level\n")
	sb.WriteString("3. Be constructive and encouraging in feedback\n")
	sb.WriteString("4. Identify specific areas for improvement\n")
	sb.WriteString("5. Consider spelling/grammar errors based on strictness\n")
	sb.WriteString("6. For essays, evaluate content, organization, and clarity\n")
	sb.WriteString("7. Return ONLY valid JSON\n")

	return sb.String()
}

func buildFeedbackPrompt(req grading.FeedbackRequest) string {
	var sb strings.Builder
	sb.WriteString("Generate encouraging and constructive overall feedback for a student who completed an exam.\n\n")
	sb.WriteString("EXAM: " + req.ExamTitle + "\n")
	pct := 0.0
	if req.MaxScore > 0 {
		pct = req.TotalScore / req.MaxScore * 100
	}
	fmt.Fprintf(&sb, "SCORE: %v/%v (%.1f%%)\n\n", req.TotalScore, req.MaxScore, pct)

	sb.WriteString("QUESTION-BY-QUESTION RESULTS:\n")
	summary, err := json.MarshalIndent(req.Results, "", "  ")
	if err == nil {
		sb.Write(summary)
	}
	sb.WriteString("\n\nProvide:\n")
	sb.WriteString("1. Overall performance summary\n")
	sb.WriteString("2. Key strengths demonstrated\n")
	sb.WriteString("3. Main areas for improvement\n")
	sb.WriteString("4. Specific study recommendations\n")
	sb.WriteString("5. Encouraging conclusion\n\n")
	sb.WriteString("Keep feedback constructive, specific, and actionable. Limit to 2-3 paragraphs.\n")

	return sb.String()
}

func strictnessLabel(strictness float64) string {
	switch {
	case strictness > 0.8:
		return "very strict"
	case strictness > 0.6:
		return "strict"
	case strictness > 0.4:
		return "moderate"
	default:
		return "lenient"
	}
}
