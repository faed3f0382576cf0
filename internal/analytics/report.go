package analytics

import (
	"fmt"
	"sort"
	"strings"
)

const reportWidth = 80

// Report renders the full class analysis as plain text, suitable for the CLI
// or for saving next to exported results.
func (a *Analytics) Report() string {
	var b strings.Builder
	rule := strings.Repeat("=", reportWidth)
	sep := strings.Repeat("-", reportWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "EXAM ANALYSIS REPORT: %s\n", a.exam.Title)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	stats := a.ClassStatistics()
	fmt.Fprintln(&b, "CLASS STATISTICS")
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "Total Students: %d\n", stats.StudentCount)
	fmt.Fprintf(&b, "Mean Score: %.2f%%\n", stats.MeanScore)
	fmt.Fprintf(&b, "Median Score: %.2f%%\n", stats.MedianScore)
	fmt.Fprintf(&b, "Standard Deviation: %.2f\n", stats.StdDev)
	fmt.Fprintf(&b, "Score Range: %.2f%% - %.2f%%\n", stats.MinScore, stats.MaxScore)
	fmt.Fprintf(&b, "Passing Rate: %.2f%% (%d students)\n", stats.PassingRate, stats.PassingCount)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "GRADE DISTRIBUTION")
	fmt.Fprintln(&b, sep)
	dist := a.GradeDistribution()
	for _, grade := range []string{"A", "B", "C", "D", "F"} {
		count := dist[grade]
		fmt.Fprintf(&b, "%s: %s (%d)\n", grade, strings.Repeat("█", count), count)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "QUESTION ANALYSIS")
	fmt.Fprintln(&b, sep)
	qstats := a.QuestionStatistics()
	if len(qstats) > 10 {
		qstats = qstats[:10]
	}
	for i, s := range qstats {
		fmt.Fprintf(&b, "%d. Q%s: %.1f%% accuracy\n", i+1, s.QuestionID, s.Accuracy)
		fmt.Fprintf(&b, "   Type: %s, Difficulty: %s\n", s.QuestionType, s.ActualDifficulty)
		fmt.Fprintf(&b, "   %d/%d students correct\n", s.StudentsCorrect, s.StudentsAttempted)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "MOST COMMONLY MISSED QUESTIONS")
	fmt.Fprintln(&b, sep)
	for i, m := range a.CommonMistakes(5) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.QuestionText)
		fmt.Fprintf(&b, "   Only %.1f%% correct (%d missed)\n", m.Accuracy, m.StudentsMissed)
		fmt.Fprintln(&b)
	}

	if topics := a.TopicPerformance(); len(topics) > 0 {
		fmt.Fprintln(&b, "PERFORMANCE BY TOPIC")
		fmt.Fprintln(&b, sep)
		names := make([]string, 0, len(topics))
		for name := range topics {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if topics[names[i]].Accuracy != topics[names[j]].Accuracy {
				return topics[names[i]].Accuracy < topics[names[j]].Accuracy
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			perf := topics[name]
			fmt.Fprintf(&b, "%s: %.1f%% accuracy\n", name, perf.Accuracy)
			fmt.Fprintf(&b, "   Average Score: %.1f%%\n", perf.AverageScore)
			fmt.Fprintln(&b)
		}
	}

	fmt.Fprintln(&b, "TOP PERFORMERS")
	fmt.Fprintln(&b, sep)
	for i, p := range a.TopPerformers(5) {
		fmt.Fprintf(&b, "%d. %s: %.2f%% (%s)\n", i+1, p.StudentName, p.Score, p.Grade)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	return b.String()
}
