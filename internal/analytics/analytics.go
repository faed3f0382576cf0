// Package analytics aggregates graded exam results into class-level
// statistics. Every method is a pure function of the exam and the result set:
// inputs are never mutated and outputs can be recomputed on demand.
package analytics

import (
	"math"
	"sort"

	"github.com/mhmod01110/exam-grading-agent-openai/internal/model"
)

// Analytics computes statistics over the results of one exam.
type Analytics struct {
	exam    model.Exam
	results []model.ExamResult
}

// New creates an analytics view over an exam and its graded results.
func New(exam model.Exam, results []model.ExamResult) *Analytics {
	return &Analytics{exam: exam, results: results}
}

// ClassStats summarizes the whole class. A zero StudentCount marks the
// no-data case; all other fields are zero then.
type ClassStats struct {
	StudentCount int     `json:"student_count"`
	MeanScore    float64 `json:"mean_score"`
	MedianScore  float64 `json:"median_score"`
	StdDev       float64 `json:"std_dev"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`
	MeanPoints   float64 `json:"mean_points"`
	PassingCount int     `json:"passing_count"`
	PassingRate  float64 `json:"passing_rate"`
}

// ClassStatistics computes descriptive statistics of percentage scores.
func (a *Analytics) ClassStatistics() ClassStats {
	if len(a.results) == 0 {
		return ClassStats{}
	}

	scores := make([]float64, 0, len(a.results))
	var pointsSum float64
	passing := 0
	for _, r := range a.results {
		pct := r.PercentageScore()
		scores = append(scores, pct)
		pointsSum += r.TotalPointsEarned
		if pct >= a.exam.PassingScore {
			passing++
		}
	}

	n := float64(len(scores))
	return ClassStats{
		StudentCount: len(scores),
		MeanScore:    mean(scores),
		MedianScore:  median(scores),
		StdDev:       sampleStdDev(scores),
		MinScore:     minOf(scores),
		MaxScore:     maxOf(scores),
		MeanPoints:   pointsSum / n,
		PassingCount: passing,
		PassingRate:  float64(passing) / n * 100,
	}
}

// GradeDistribution counts results per letter grade. The bands are fixed and
// independent of the exam's passing score.
func (a *Analytics) GradeDistribution() map[string]int {
	dist := make(map[string]int)
	for _, r := range a.results {
		dist[r.GradeLetter()]++
	}
	return dist
}

// QuestionStats describes class performance on one question.
type QuestionStats struct {
	QuestionID         string             `json:"question_id"`
	QuestionText       string             `json:"question_text"`
	QuestionType       model.QuestionType `json:"question_type"`
	ExpectedDifficulty model.Difficulty   `json:"expected_difficulty"`
	ActualDifficulty   model.Difficulty   `json:"actual_difficulty"`
	Accuracy           float64            `json:"accuracy"`
	AveragePoints      float64            `json:"average_points"`
	MaxPoints          float64            `json:"max_points"`
	StudentsAttempted  int                `json:"students_attempted"`
	StudentsCorrect    int                `json:"students_correct"`
}

// QuestionStatistics analyzes each question across the class, sorted by
// accuracy ascending so the hardest questions come first. Questions no
// result carries a GradingResult for are omitted rather than counted wrong.
func (a *Analytics) QuestionStatistics() []QuestionStats {
	stats := make([]QuestionStats, 0, len(a.exam.Questions))

	for _, q := range a.exam.Questions {
		attempted, correct := 0, 0
		var earned float64
		for _, r := range a.results {
			qr, ok := r.QuestionResult(q.ID)
			if !ok {
				continue
			}
			attempted++
			if qr.IsCorrect {
				correct++
			}
			earned += qr.PointsEarned
		}
		if attempted == 0 {
			continue
		}

		accuracy := float64(correct) / float64(attempted) * 100
		stats = append(stats, QuestionStats{
			QuestionID:         q.ID,
			QuestionText:       truncate(q.Text, 100),
			QuestionType:       q.Type,
			ExpectedDifficulty: q.Difficulty,
			ActualDifficulty:   difficultyForAccuracy(accuracy),
			Accuracy:           accuracy,
			AveragePoints:      earned / float64(attempted),
			MaxPoints:          q.Points,
			StudentsAttempted:  attempted,
			StudentsCorrect:    correct,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Accuracy < stats[j].Accuracy })
	return stats
}

// Mistake is a commonly missed question.
type Mistake struct {
	QuestionID     string  `json:"question_id"`
	QuestionText   string  `json:"question_text"`
	Accuracy       float64 `json:"accuracy"`
	StudentsMissed int     `json:"students_missed"`
}

// CommonMistakes returns the up-to-n lowest-accuracy questions that fewer
// than 80% of attempting students answered correctly.
func (a *Analytics) CommonMistakes(n int) []Mistake {
	stats := a.QuestionStatistics()
	if n > len(stats) {
		n = len(stats)
	}

	var mistakes []Mistake
	for _, s := range stats[:n] {
		if s.Accuracy >= 80 {
			continue
		}
		mistakes = append(mistakes, Mistake{
			QuestionID:     s.QuestionID,
			QuestionText:   s.QuestionText,
			Accuracy:       s.Accuracy,
			StudentsMissed: s.StudentsAttempted - s.StudentsCorrect,
		})
	}
	return mistakes
}

// Performer is one entry in the top-performers list.
type Performer struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Score       float64 `json:"score"`
	Grade       string  `json:"grade"`
	Points      float64 `json:"points"`
	MaxPoints   float64 `json:"max_points"`
}

// TopPerformers returns up to n results sorted descending by percentage.
func (a *Analytics) TopPerformers(n int) []Performer {
	sorted := make([]model.ExamResult, len(a.results))
	copy(sorted, a.results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PercentageScore() > sorted[j].PercentageScore()
	})
	if n > len(sorted) {
		n = len(sorted)
	}

	top := make([]Performer, 0, n)
	for _, r := range sorted[:n] {
		top = append(top, Performer{
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			Score:       r.PercentageScore(),
			Grade:       r.GradeLetter(),
			Points:      r.TotalPointsEarned,
			MaxPoints:   r.TotalPointsPossible,
		})
	}
	return top
}

// TopicStats summarizes class performance on one topic tag.
type TopicStats struct {
	Accuracy            float64 `json:"accuracy"`
	AverageScore        float64 `json:"average_score"`
	QuestionsPerStudent float64 `json:"questions_per_student"`
}

// TopicPerformance accumulates per-topic counts across every (question,
// topic) pair: a question tagged with several topics contributes to each.
// QuestionsPerStudent is the precise average number of graded answers per
// result, not an integer truncation.
func (a *Analytics) TopicPerformance() map[string]TopicStats {
	type acc struct {
		correct, total   int
		earned, possible float64
	}
	byTopic := make(map[string]*acc)

	for _, q := range a.exam.Questions {
		for _, topic := range q.Topics {
			for _, r := range a.results {
				qr, ok := r.QuestionResult(q.ID)
				if !ok {
					continue
				}
				st := byTopic[topic]
				if st == nil {
					st = &acc{}
					byTopic[topic] = st
				}
				st.total++
				if qr.IsCorrect {
					st.correct++
				}
				st.earned += qr.PointsEarned
				st.possible += qr.PointsPossible
			}
		}
	}

	out := make(map[string]TopicStats, len(byTopic))
	for topic, st := range byTopic {
		stats := TopicStats{}
		if st.total > 0 {
			stats.Accuracy = float64(st.correct) / float64(st.total) * 100
		}
		if st.possible > 0 {
			stats.AverageScore = st.earned / st.possible * 100
		}
		if len(a.results) > 0 {
			stats.QuestionsPerStudent = float64(st.total) / float64(len(a.results))
		}
		out[topic] = stats
	}
	return out
}

func difficultyForAccuracy(accuracy float64) model.Difficulty {
	switch {
	case accuracy > 80:
		return model.DifficultyEasy
	case accuracy > 50:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// sampleStdDev is the n-1 standard deviation, 0 for fewer than two samples.
func sampleStdDev(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
