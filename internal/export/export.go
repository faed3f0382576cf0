// Package export renders graded results as JSON, CSV, and plain-text
// reports. All exporters write to an io.Writer; callers own file handling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
)

const lineWidth = 80

// resultRecord is the flattened JSON shape of one graded result.
type resultRecord struct {
	StudentID       string           `json:"student_id"`
	StudentName     string           `json:"student_name"`
	ExamID          string           `json:"exam_id"`
	TotalScore      float64          `json:"total_score"`
	MaxScore        float64          `json:"max_score"`
	Percentage      float64          `json:"percentage"`
	Grade           string           `json:"grade"`
	GradedAt        time.Time        `json:"graded_at"`
	QuestionResults []questionRecord `json:"question_results"`
}

type questionRecord struct {
	QuestionID     string  `json:"question_id"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
	IsCorrect      bool    `json:"is_correct"`
	Feedback       string  `json:"feedback"`
}

// JSON writes all results as an indented JSON array.
func JSON(w io.Writer, results []model.ExamResult) error {
	records := make([]resultRecord, 0, len(results))
	for _, r := range results {
		rec := resultRecord{
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			ExamID:      r.ExamID,
			TotalScore:  r.TotalPointsEarned,
			MaxScore:    r.TotalPointsPossible,
			Percentage:  r.PercentageScore(),
			Grade:       r.GradeLetter(),
			GradedAt:    r.GradedAt,
		}
		for _, qr := range r.QuestionResults {
			rec.QuestionResults = append(rec.QuestionResults, questionRecord{
				QuestionID:     qr.QuestionID,
				PointsEarned:   qr.PointsEarned,
				PointsPossible: qr.PointsPossible,
				IsCorrect:      qr.IsCorrect,
				Feedback:       qr.Feedback,
			})
		}
		records = append(records, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// SummaryCSV writes one row per student with overall scores.
func SummaryCSV(w io.Writer, results []model.ExamResult) error {
	cw := csv.NewWriter(w)
	header := []string{"Student ID", "Student Name", "Total Score", "Max Score", "Percentage", "Grade", "Graded At"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.StudentID,
			r.StudentName,
			fmt.Sprintf("%.2f", r.TotalPointsEarned),
			fmt.Sprintf("%.2f", r.TotalPointsPossible),
			fmt.Sprintf("%.2f", r.PercentageScore()),
			r.GradeLetter(),
			r.GradedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", r.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DetailedCSV writes one row per student with a column per exam question.
func DetailedCSV(w io.Writer, exam model.Exam, results []model.ExamResult) error {
	if len(results) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	header := []string{"Student ID", "Student Name"}
	for _, q := range exam.Questions {
		header = append(header, "Q"+q.ID)
	}
	header = append(header, "Total Score", "Percentage", "Grade")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		row := []string{r.StudentID, r.StudentName}
		for _, q := range exam.Questions {
			if qr, ok := r.QuestionResult(q.ID); ok {
				row = append(row, fmt.Sprintf("%.1f/%.1f", qr.PointsEarned, qr.PointsPossible))
			} else {
				row = append(row, "0/0")
			}
		}
		row = append(row,
			fmt.Sprintf("%.2f", r.TotalPointsEarned),
			fmt.Sprintf("%.2f", r.PercentageScore()),
			r.GradeLetter(),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", r.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// StudentReport writes one student's full graded breakdown as plain text.
func StudentReport(w io.Writer, exam model.Exam, result model.ExamResult) error {
	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	sep := strings.Repeat("-", lineWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EXAM RESULTS REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Student: %s (ID: %s)\n", result.StudentName, result.StudentID)
	fmt.Fprintf(&b, "Exam: %s\n", exam.Title)
	fmt.Fprintf(&b, "Date: %s\n", result.GradedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "OVERALL PERFORMANCE")
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "Score: %.2f / %.2f\n", result.TotalPointsEarned, result.TotalPointsPossible)
	fmt.Fprintf(&b, "Percentage: %.2f%%\n", result.PercentageScore())
	fmt.Fprintf(&b, "Grade: %s\n", result.GradeLetter())
	fmt.Fprintln(&b)

	if result.OverallFeedback != "" {
		fmt.Fprintln(&b, "OVERALL FEEDBACK:")
		fmt.Fprintln(&b, result.OverallFeedback)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "QUESTION-BY-QUESTION BREAKDOWN")
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b)

	for i, qr := range result.QuestionResults {
		fmt.Fprintf(&b, "Question %d (ID: %s)\n", i+1, qr.QuestionID)
		if q, ok := exam.Question(qr.QuestionID); ok {
			fmt.Fprintf(&b, "Type: %s\n", q.Type)
			fmt.Fprintf(&b, "Question: %s\n", q.Text)
		}
		fmt.Fprintf(&b, "Your Answer: %v\n", qr.StudentAnswer)
		fmt.Fprintf(&b, "Score: %.2f / %.2f\n", qr.PointsEarned, qr.PointsPossible)
		status := "✗ Incorrect"
		if qr.IsCorrect {
			status = "✓ Correct"
		}
		fmt.Fprintf(&b, "Status: %s\n", status)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Feedback:")
		fmt.Fprintln(&b, qr.Feedback)

		if len(qr.Suggestions) > 0 {
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, "Suggestions for Improvement:")
			for _, s := range qr.Suggestions {
				fmt.Fprintf(&b, "  • %s\n", s)
			}
		}
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, sep)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "END OF REPORT")
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// All writes every export format under outputDir: a JSON dump, summary and
// detailed CSVs, and one text report per student. File names embed the exam
// ID and a timestamp so repeated runs never overwrite each other.
func All(outputDir string, exam model.Exam, results []model.ExamResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	prefix := strings.ReplaceAll(exam.ID, " ", "_")

	if err := writeFile(filepath.Join(outputDir, fmt.Sprintf("%s_results_%s.json", prefix, timestamp)),
		func(w io.Writer) error { return JSON(w, results) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, fmt.Sprintf("%s_summary_%s.csv", prefix, timestamp)),
		func(w io.Writer) error { return SummaryCSV(w, results) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, fmt.Sprintf("%s_detailed_%s.csv", prefix, timestamp)),
		func(w io.Writer) error { return DetailedCSV(w, exam, results) }); err != nil {
		return err
	}

	reportDir := filepath.Join(outputDir, fmt.Sprintf("%s_individual_reports_%s", prefix, timestamp))
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	for _, r := range results {
		safeName := strings.ReplaceAll(r.StudentName, " ", "_")
		path := filepath.Join(reportDir, fmt.Sprintf("%s_%s.txt", safeName, r.StudentID))
		if err := writeFile(path, func(w io.Writer) error { return StudentReport(w, exam, r) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
