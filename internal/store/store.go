// Package store persists exams, submissions, and graded results in SQLite.
// Untyped payloads (answers, metadata, breakdowns) are stored as JSON text
// columns; typed fields get their own columns so they can be queried.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the
// schema. Use ":memory:" for an ephemeral store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		passing_score REAL NOT NULL DEFAULT 60,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		config TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT NOT NULL,
		exam_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		points REAL NOT NULL,
		correct_answer TEXT NOT NULL DEFAULT 'null',
		difficulty TEXT NOT NULL DEFAULT '',
		topics TEXT NOT NULL DEFAULT '[]',
		explanation TEXT NOT NULL DEFAULT '',
		rubric TEXT NOT NULL DEFAULT '',
		options TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (exam_id, id),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL DEFAULT '',
		answers TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL DEFAULT '',
		points_earned REAL NOT NULL,
		points_possible REAL NOT NULL,
		overall_feedback TEXT NOT NULL DEFAULT '',
		question_results TEXT NOT NULL,
		type_breakdown TEXT NOT NULL DEFAULT '{}',
		graded_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_exam ON submissions(exam_id);
	CREATE INDEX IF NOT EXISTS idx_results_exam ON results(exam_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveExam inserts or replaces an exam and its questions atomically.
func (s *Store) SaveExam(exam model.Exam) error {
	if err := exam.Validate(); err != nil {
		return fmt.Errorf("validate exam: %w", err)
	}

	config, err := json.Marshal(exam.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	createdAt := exam.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO exams (id, title, description, subject, passing_score, duration_minutes, config, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description,
		   subject = excluded.subject, passing_score = excluded.passing_score,
		   duration_minutes = excluded.duration_minutes, config = excluded.config`,
		exam.ID, exam.Title, exam.Description, exam.Subject,
		exam.PassingScore, exam.DurationMin, string(config), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE exam_id = ?`, exam.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for i, q := range exam.Questions {
		correct, err := json.Marshal(q.CorrectAnswer)
		if err != nil {
			return fmt.Errorf("encode correct answer for %s: %w", q.ID, err)
		}
		topics, _ := json.Marshal(q.Topics)
		options, _ := json.Marshal(q.Options)
		metadata, _ := json.Marshal(q.Metadata)
		_, err = tx.Exec(
			`INSERT INTO questions (id, exam_id, position, text, type, points, correct_answer,
			                        difficulty, topics, explanation, rubric, options, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, exam.ID, i, q.Text, q.Type, q.Points, string(correct),
			q.Difficulty, string(topics), q.Explanation, q.Rubric, string(options), string(metadata),
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}

// GetExam returns the exam with its questions in original order, or nil if
// no such exam exists.
func (s *Store) GetExam(examID string) (*model.Exam, error) {
	var exam model.Exam
	var config string
	err := s.db.QueryRow(
		`SELECT id, title, description, subject, passing_score, duration_minutes, config, created_at
		 FROM exams WHERE id = ?`, examID,
	).Scan(&exam.ID, &exam.Title, &exam.Description, &exam.Subject,
		&exam.PassingScore, &exam.DurationMin, &config, &exam.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select exam: %w", err)
	}
	if err := json.Unmarshal([]byte(config), &exam.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, text, type, points, correct_answer, difficulty, topics, explanation, rubric, options, metadata
		 FROM questions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		var correct, topics, options, metadata string
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Points, &correct,
			&q.Difficulty, &topics, &q.Explanation, &q.Rubric, &options, &metadata); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(correct), &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("decode correct answer for %s: %w", q.ID, err)
		}
		json.Unmarshal([]byte(topics), &q.Topics)
		json.Unmarshal([]byte(options), &q.Options)
		json.Unmarshal([]byte(metadata), &q.Metadata)
		exam.Questions = append(exam.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ExamSummary is a lightweight listing row.
type ExamSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	QuestionCount int       `json:"question_count"`
	TotalPoints   float64   `json:"total_points"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListExams returns summaries of all stored exams, newest first.
func (s *Store) ListExams() ([]ExamSummary, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.title, e.subject, COUNT(q.id), COALESCE(SUM(q.points), 0), e.created_at
		 FROM exams e LEFT JOIN questions q ON q.exam_id = e.id
		 GROUP BY e.id ORDER BY e.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []ExamSummary
	for rows.Next() {
		var e ExamSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.QuestionCount, &e.TotalPoints, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// SaveSubmission stores one student submission and returns its row ID.
func (s *Store) SaveSubmission(sub model.Submission) (int64, error) {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}
	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (exam_id, student_id, student_name, answers, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.ExamID, sub.StudentID, sub.StudentName, string(answers), submittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubmissions returns all submissions for an exam in insertion order.
func (s *Store) ListSubmissions(examID string) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT exam_id, student_id, student_name, answers, submitted_at
		 FROM submissions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		var answers string
		if err := rows.Scan(&sub.ExamID, &sub.StudentID, &sub.StudentName, &answers, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveResult stores a graded result. A student's previous result for the
// same exam is replaced so regrading never duplicates rows.
func (s *Store) SaveResult(r model.ExamResult) error {
	questionResults, err := json.Marshal(r.QuestionResults)
	if err != nil {
		return fmt.Errorf("encode question results: %w", err)
	}
	breakdown, err := json.Marshal(r.TypeBreakdown)
	if err != nil {
		return fmt.Errorf("encode type breakdown: %w", err)
	}
	gradedAt := r.GradedAt
	if gradedAt.IsZero() {
		gradedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM results WHERE exam_id = ? AND student_id = ?`, r.ExamID, r.StudentID,
	); err != nil {
		return fmt.Errorf("clear previous result: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO results (exam_id, student_id, student_name, points_earned, points_possible,
		                      overall_feedback, question_results, type_breakdown, graded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ExamID, r.StudentID, r.StudentName, r.TotalPointsEarned, r.TotalPointsPossible,
		r.OverallFeedback, string(questionResults), string(breakdown), gradedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return tx.Commit()
}

// GetResult returns one student's result for an exam, or nil if not graded.
func (s *Store) GetResult(examID, studentID string) (*model.ExamResult, error) {
	row := s.db.QueryRow(
		`SELECT exam_id, student_id, student_name, points_earned, points_possible,
		        overall_feedback, question_results, type_breakdown, graded_at
		 FROM results WHERE exam_id = ? AND student_id = ?`, examID, studentID,
	)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListResults returns every graded result for an exam in grading order.
func (s *Store) ListResults(examID string) ([]model.ExamResult, error) {
	rows, err := s.db.Query(
		`SELECT exam_id, student_id, student_name, points_earned, points_possible,
		        overall_feedback, question_results, type_breakdown, graded_at
		 FROM results WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*model.ExamResult, error) {
	var r model.ExamResult
	var questionResults, breakdown string
	err := row.Scan(&r.ExamID, &r.StudentID, &r.StudentName,
		&r.TotalPointsEarned, &r.TotalPointsPossible,
		&r.OverallFeedback, &questionResults, &breakdown, &r.GradedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questionResults), &r.QuestionResults); err != nil {
		return nil, fmt.Errorf("decode question results: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &r.TypeBreakdown); err != nil {
		return nil, fmt.Errorf("decode type breakdown: %w", err)
	}
	return &r, nil
}
