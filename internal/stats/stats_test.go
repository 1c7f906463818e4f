package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

func TestBandFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Band
	}{
		{100, BandGood},
		{80, BandGood},
		{79.9, BandFair},
		{60, BandFair},
		{59.9, BandPoor},
		{0, BandPoor},
	}
	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.want {
			t.Fatalf("BandFor(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(3, 4); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	if got := Percent(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty test, got %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func attempts(scores ...float64) []model.Attempt {
	out := make([]model.Attempt, len(scores))
	sections := []model.Section{model.SectionReading, model.SectionWriting}
	for i, s := range scores {
		out[i] = model.Attempt{
			TestTitle:   "Mock",
			Section:     sections[i%len(sections)],
			Score:       s,
			Correct:     int(s / 10),
			Total:       10,
			SubmittedAt: time.Unix(int64(i)*3600, 0),
			DurationMs:  95000,
			Trigger:     model.TriggerExpired,
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(attempts(50, 90, 70, 30))
	if s.Attempts != 4 || s.Average != 60 || s.Best != 90 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.Sections) != 2 || s.Sections[0].Section != model.SectionReading {
		t.Fatalf("unexpected sections: %+v", s.Sections)
	}
	if avg, ok := SectionAverage(s.Sections, model.SectionWriting); !ok || avg != 60 {
		t.Fatalf("unexpected writing average %v %v", avg, ok)
	}
	if _, ok := SectionAverage(s.Sections, model.SectionSpeaking); ok {
		t.Fatalf("speaking has no attempts")
	}
}

func TestSelectWeakSections(t *testing.T) {
	aggs := []model.SectionAggregate{
		{Section: model.SectionReading, Attempts: 2, ScoreSum: 100},
		{Section: model.SectionWriting, Attempts: 1, ScoreSum: 40},
		{Section: model.SectionListening, Attempts: 1, ScoreSum: 95},
		{Section: model.SectionSpeaking, Attempts: 1, ScoreSum: 65},
	}
	weak := SelectWeakSections(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak sections, got %v", weak)
	}
	for _, sec := range []model.Section{model.SectionWriting, model.SectionReading} {
		if _, ok := weak[sec]; !ok {
			t.Fatalf("expected %s to be weak: %v", sec, weak)
		}
	}
	all := SelectWeakSections(aggs, 0)
	if _, ok := all[model.SectionListening]; ok {
		t.Fatalf("good band section must not be weak: %v", all)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 weak sections, got %v", all)
	}
}

func TestDistribution(t *testing.T) {
	buckets := Distribution(attempts(0, 9.5, 55, 100, 99))
	if len(buckets) != 10 || buckets[9].Label != "90-100" {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}
	if buckets[0].Count != 2 || buckets[5].Count != 1 || buckets[9].Count != 2 {
		t.Fatalf("unexpected counts: %+v", buckets)
	}
}

func TestTrendChart(t *testing.T) {
	lines := TrendChart([]float64{0, 100}, []float64{0, 50}, 20, 5)
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "100% | ") || !strings.HasPrefix(lines[4], "  0% | ") {
		t.Fatalf("unexpected axis labels: %q", lines)
	}
	if !strings.HasSuffix(lines[0], " *") {
		t.Fatalf("expected top score mark in last column: %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], " .") {
		t.Fatalf("expected average mark at mid row: %q", lines[2])
	}
	if !strings.HasSuffix(lines[4], "* ") {
		t.Fatalf("expected first score at bottom: %q", lines[4])
	}
}

func TestResampleAveragesBuckets(t *testing.T) {
	got := resample([]float64{10, 20, 30, 40}, 2)
	if len(got) != 2 || got[0] != 15 || got[1] != 35 {
		t.Fatalf("unexpected resample: %v", got)
	}
}

func TestBarChart(t *testing.T) {
	lines := BarChart([]Bar{{Label: "This attempt", Value: 50}, {Label: "Avg", Value: 100}}, 47)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// 47 - 12 label - 3 separator - 7 value leaves 25 bar cells.
	if strings.Count(lines[0], "#") != 13 || strings.Count(lines[1], "#") != 25 {
		t.Fatalf("unexpected bars: %q", lines)
	}
	if !strings.HasPrefix(lines[1], "Avg          | ") || !strings.HasSuffix(lines[1], "100.0%") {
		t.Fatalf("unexpected bar layout: %q", lines[1])
	}
}

func TestRenderersWrite(t *testing.T) {
	var buf bytes.Buffer
	list := attempts(40, 85)
	if err := RenderSummary(&buf, list); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderSectionTable(&buf, AggregateSections(list)); err != nil {
		t.Fatalf("section table: %v", err)
	}
	if err := RenderAttemptsTable(&buf, list); err != nil {
		t.Fatalf("attempts table: %v", err)
	}
	if err := RenderTrend(&buf, list, 3, 60, 4); err != nil {
		t.Fatalf("trend: %v", err)
	}
	if err := RenderComparison(&buf, 85, 40, true, 60); err != nil {
		t.Fatalf("comparison: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attempts: 2", "Average: 62.5% (fair)", "Reading", "1:35", "expired", "Legend:", "Section average"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil || !strings.Contains(buf.String(), "No attempts found.") {
		t.Fatalf("expected empty summary, got %q %v", buf.String(), err)
	}
}
