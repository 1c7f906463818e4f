// Package stats contains score calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Band classifies a score percentage.
type Band int

const (
	BandPoor Band = iota
	BandFair
	BandGood
)

const (
	goodThreshold = 80.0
	fairThreshold = 60.0
)

// BandFor returns the band of a score percentage.
func BandFor(score float64) Band {
	switch {
	case score >= goodThreshold:
		return BandGood
	case score >= fairThreshold:
		return BandFair
	default:
		return BandPoor
	}
}

func (b Band) String() string {
	switch b {
	case BandGood:
		return "good"
	case BandFair:
		return "fair"
	default:
		return "poor"
	}
}

// Percent returns correct/total as a percentage. An empty test scores zero.
func Percent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Summary aggregates a list of attempts.
type Summary struct {
	Attempts int
	Average  float64
	Best     float64
	Sections []model.SectionAggregate
}

// Summarize computes overall and per-section figures.
func Summarize(attempts []model.Attempt) Summary {
	s := Summary{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return s
	}
	var total float64
	for _, a := range attempts {
		total += a.Score
		if a.Score > s.Best {
			s.Best = a.Score
		}
	}
	s.Average = total / float64(len(attempts))
	s.Sections = AggregateSections(attempts)
	return s
}

// AggregateSections groups attempts by section in display order.
func AggregateSections(attempts []model.Attempt) []model.SectionAggregate {
	bySection := map[model.Section]*model.SectionAggregate{}
	for _, a := range attempts {
		agg, ok := bySection[a.Section]
		if !ok {
			agg = &model.SectionAggregate{Section: a.Section}
			bySection[a.Section] = agg
		}
		agg.Attempts++
		agg.ScoreSum += a.Score
		agg.Correct += a.Correct
		agg.Total += a.Total
		if a.Score > agg.Best {
			agg.Best = a.Score
		}
	}
	out := make([]model.SectionAggregate, 0, len(bySection))
	for _, sec := range model.Sections {
		if agg, ok := bySection[sec]; ok {
			out = append(out, *agg)
			delete(bySection, sec)
		}
	}
	rest := make([]model.SectionAggregate, 0, len(bySection))
	for _, agg := range bySection {
		rest = append(rest, *agg)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Section < rest[j].Section })
	return append(out, rest...)
}

// Average returns the mean score of an aggregate.
func Average(agg model.SectionAggregate) float64 {
	if agg.Attempts == 0 {
		return 0
	}
	return agg.ScoreSum / float64(agg.Attempts)
}

// SectionAverage finds the mean score of one section.
func SectionAverage(aggs []model.SectionAggregate, section model.Section) (float64, bool) {
	for _, agg := range aggs {
		if agg.Section == section && agg.Attempts > 0 {
			return Average(agg), true
		}
	}
	return 0, false
}

// Scores extracts the score series of attempts.
func Scores(attempts []model.Attempt) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		out[i] = a.Score
	}
	return out
}

// Bucket is one bin of the score distribution.
type Bucket struct {
	Label string
	Count int
}

// Distribution bins scores into ten-point buckets from 0-9 to 90-100.
func Distribution(attempts []model.Attempt) []Bucket {
	buckets := make([]Bucket, 10)
	for i := range buckets {
		hi := i*10 + 9
		if i == 9 {
			hi = 100
		}
		buckets[i].Label = fmt.Sprintf("%d-%d", i*10, hi)
	}
	for _, a := range attempts {
		idx := int(math.Floor(a.Score / 10))
		if idx < 0 {
			idx = 0
		}
		if idx > 9 {
			idx = 9
		}
		buckets[idx].Count++
	}
	return buckets
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline on a fixed 0-100 scale.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round(clampScore(v) / 100 * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// RenderSummary prints a summary of attempts.
func RenderSummary(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	s := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", s.Attempts),
		fmt.Sprintf("Average: %.1f%% (%s)", s.Average, BandFor(s.Average)),
		fmt.Sprintf("Best: %.1f%%", s.Best),
	}
	for _, agg := range s.Sections {
		lines = append(lines, fmt.Sprintf("%s: %.1f%% over %d", agg.Section, Average(agg), agg.Attempts))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSectionTable prints per-section aggregates, weakest first.
func RenderSectionTable(w io.Writer, aggs []model.SectionAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No section stats found.")
		return err
	}
	rows := make([]model.SectionAggregate, len(aggs))
	copy(rows, aggs)
	sort.SliceStable(rows, func(i, j int) bool {
		return Average(rows[i]) < Average(rows[j])
	})

	headers := []string{"Section", "Attempts", "Average", "Best", "Correct", "Band"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		avg := Average(r)
		tableRows = append(tableRows, []string{
			string(r.Section),
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%.1f%%", avg),
			fmt.Sprintf("%.1f%%", r.Best),
			fmt.Sprintf("%d/%d", r.Correct, r.Total),
			BandFor(avg).String(),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderAttemptsTable prints attempts newest first.
func RenderAttemptsTable(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	headers := []string{"Date", "Test", "Section", "Score", "Correct", "Time", "Submit"}
	rows := make([][]string, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		rows = append(rows, AttemptRow(attempts[i]))
	}
	for _, line := range formatTable(headers, rows, map[int]bool{3: true, 4: true, 5: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// AttemptRow formats an attempt as table cells.
func AttemptRow(a model.Attempt) []string {
	return []string{
		a.SubmittedAt.Local().Format("2006-01-02 15:04"),
		a.TestTitle,
		string(a.Section),
		fmt.Sprintf("%.0f%%", a.Score),
		fmt.Sprintf("%d/%d", a.Correct, a.Total),
		formatDuration(a.DurationMs),
		string(a.Trigger),
	}
}

func formatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// RenderTrend prints the score curve with its moving average.
func RenderTrend(w io.Writer, attempts []model.Attempt, window, totalWidth, height int) error {
	if len(attempts) == 0 {
		return nil
	}
	scores := Scores(attempts)
	lines := TrendChart(scores, MovingAverage(scores, window), ChartWidthFor(totalWidth), height)
	if _, err := fmt.Fprintf(w, "Score trend (moving average over %d)\n", maxInt(window, 1)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Legend: %c score  %c average\n\n", scoreMark, averageMark)
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
