package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/grading"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
	"github.com/mhmod01110/exam-grading-agent-openai/internal/store"
)

type stubOracle struct {
	gradeCalls int
}

func (o *stubOracle) GradeAnswer(ctx context.Context, req grading.OracleRequest) (*grading.OracleResult, error) {
	o.gradeCalls++
	return &grading.OracleResult{
		PointsEarned: req.PointsPossible / 2,
		IsCorrect:    false,
		Feedback:     "AI partial credit.",
	}, nil
}

func (o *stubOracle) OverallFeedback(ctx context.Context, req grading.FeedbackRequest) (string, error) {
	return "Keep practicing.", nil
}

func newTestServer(t *testing.T, oracle grading.Oracle) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := chi.NewRouter()
	New(s, oracle, "gpt-4o-mini").Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func apiExam() model.Exam {
	cfg := model.DefaultGradingConfig()
	cfg.AIGradingEnabled = false
	return model.Exam{
		ID:           "quiz-1",
		Title:        "Pop Quiz",
		PassingScore: 60,
		Config:       cfg,
		Questions: []model.Question{
			{ID: "q1", Text: "Pick B.", Type: model.TypeMultipleChoice, Points: 10,
				CorrectAnswer: "B", Options: []string{"A", "B"}, Topics: []string{"basics"}},
			{ID: "q2", Text: "What is 6*7?", Type: model.TypeNumerical, Points: 10, CorrectAnswer: "42"},
		},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	body := decodeBody(t, resp)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if body["ai_configured"] != false {
		t.Errorf("ai_configured = %v, want false without an oracle", body["ai_configured"])
	}
}

func TestCreateAndGetExam(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/exams", apiExam())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["exam_id"] != "quiz-1" || body["total_points"] != 20.0 {
		t.Errorf("create response = %v", body)
	}

	resp2, err := http.Get(srv.URL + "/api/exams/quiz-1")
	if err != nil {
		t.Fatalf("GET exam: %v", err)
	}
	got := decodeBody(t, resp2)
	if got["title"] != "Pop Quiz" || got["question_count"] != 2.0 {
		t.Errorf("exam = %v", got)
	}
	// Student view must not leak answers.
	questions, ok := got["questions"].([]any)
	if !ok || len(questions) != 2 {
		t.Fatalf("questions = %v", got["questions"])
	}
	if _, leaked := questions[0].(map[string]any)["correct_answer"]; leaked {
		t.Error("exam view leaks correct_answer")
	}
}

func TestCreateExamRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	exam := apiExam()
	exam.Questions[0].Points = -5
	resp := postJSON(t, srv.URL+"/api/exams", exam)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetExamNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/exams/ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateSubmission(t *testing.T) {
	srv, s := newTestServer(t, nil)
	if err := s.SaveExam(apiExam()); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	resp := postJSON(t, srv.URL+"/api/submissions", model.Submission{
		StudentID: "s1",
		ExamID:    "quiz-1",
		Answers:   []model.Answer{{QuestionID: "q1", Response: "B"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["submission_id"] == nil {
		t.Errorf("response = %v, want submission_id", body)
	}

	subs, err := s.ListSubmissions("quiz-1")
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("got %d stored submissions, want 1", len(subs))
	}
}

func TestCreateSubmissionUnknownExam(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/submissions", model.Submission{
		StudentID: "s1",
		ExamID:    "ghost",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGradeDeterministic(t *testing.T) {
	srv, s := newTestServer(t, nil)
	if err := s.SaveExam(apiExam()); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	resp := postJSON(t, srv.URL+"/api/grade", map[string]any{
		"exam_id":      "quiz-1",
		"student_id":   "s1",
		"student_name": "Alice",
		"answers": []model.Answer{
			{QuestionID: "q1", Response: "B"},
			{QuestionID: "q2", Response: "41"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["total_score"] != 10.0 || body["max_score"] != 20.0 {
		t.Errorf("scores = %v/%v, want 10/20", body["total_score"], body["max_score"])
	}
	if body["grade"] != "F" {
		t.Errorf("grade = %v, want F", body["grade"])
	}

	// The result must be persisted for later analytics.
	stored, err := s.GetResult("quiz-1", "s1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored == nil || stored.TotalPointsEarned != 10 {
		t.Errorf("stored result = %+v", stored)
	}
}

func TestGradeUsesOracleWhenEnabled(t *testing.T) {
	oracle := &stubOracle{}
	srv, s := newTestServer(t, oracle)

	exam := apiExam()
	exam.Config.AIGradingEnabled = true
	if err := s.SaveExam(exam); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	resp := postJSON(t, srv.URL+"/api/grade", map[string]any{
		"exam_id":    "quiz-1",
		"student_id": "s1",
		"answers": []model.Answer{
			{QuestionID: "q1", Response: "A"}, // wrong, escalates
			{QuestionID: "q2", Response: "42"},
		},
	})
	body := decodeBody(t, resp)
	if oracle.gradeCalls != 1 {
		t.Errorf("oracle grade calls = %d, want 1", oracle.gradeCalls)
	}
	// 5 from the oracle for q1, 10 deterministic for q2.
	if body["total_score"] != 15.0 {
		t.Errorf("total_score = %v, want 15", body["total_score"])
	}
}

func TestGradeUseAIOptOut(t *testing.T) {
	oracle := &stubOracle{}
	srv, s := newTestServer(t, oracle)

	exam := apiExam()
	exam.Config.AIGradingEnabled = true
	if err := s.SaveExam(exam); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	resp := postJSON(t, srv.URL+"/api/grade", map[string]any{
		"exam_id":    "quiz-1",
		"student_id": "s1",
		"use_ai":     false,
		"answers":    []model.Answer{{QuestionID: "q1", Response: "A"}},
	})
	resp.Body.Close()
	if oracle.gradeCalls != 0 {
		t.Errorf("oracle grade calls = %d, want 0 with use_ai=false", oracle.gradeCalls)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, s := newTestServer(t, nil)
	if err := s.SaveExam(apiExam()); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	// Before any grading, the endpoint reports no results.
	resp, err := http.Get(srv.URL + "/api/analytics/quiz-1")
	if err != nil {
		t.Fatalf("GET analytics: %v", err)
	}
	body := decodeBody(t, resp)
	if body["message"] != "No results yet" {
		t.Errorf("empty analytics = %v", body)
	}

	postJSON(t, srv.URL+"/api/grade", map[string]any{
		"exam_id":    "quiz-1",
		"student_id": "s1",
		"answers": []model.Answer{
			{QuestionID: "q1", Response: "B"},
			{QuestionID: "q2", Response: "42"},
		},
	}).Body.Close()

	resp2, err := http.Get(srv.URL + "/api/analytics/quiz-1")
	if err != nil {
		t.Fatalf("GET analytics: %v", err)
	}
	stats := decodeBody(t, resp2)
	cs, ok := stats["class_statistics"].(map[string]any)
	if !ok {
		t.Fatalf("analytics = %v", stats)
	}
	if cs["student_count"] != 1.0 || cs["mean_score"] != 100.0 {
		t.Errorf("class statistics = %v", cs)
	}
	if _, ok := stats["performance_by_topic"].(map[string]any); !ok {
		t.Errorf("performance_by_topic = %v", stats["performance_by_topic"])
	}
}
