package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultChartHeight  = 8
	minChartWidth       = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " | "
	terminalWidthBackup = 80

	scoreMark   = '*'
	averageMark = '.'
	barFill     = '#'
)

// TerminalWidth reports the width of stdout, falling back to 80 columns.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// ChartWidthFor computes a plot width that fits within the total available
// width. Zero means the terminal width.
func ChartWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		totalWidth = TerminalWidth()
	}
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	width := totalWidth - axisWidth
	if width < minChartWidth {
		width = minChartWidth
	}
	return width
}

// TrendChart draws scores and their average on a fixed 0-100 axis. Where
// both marks fall in the same cell the score wins.
func TrendChart(scores, average []float64, width, height int) []string {
	if len(scores) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	if width < minChartWidth {
		width = minChartWidth
	}
	if len(scores) < width {
		width = len(scores)
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}
	for x, v := range resample(average, width) {
		grid[valueToRow(v, height)][x] = averageMark
	}
	for x, v := range resample(scores, width) {
		grid[valueToRow(v, height)][x] = scoreMark
	}

	labels := axisLabels(height)
	labelWidth := utf8.RuneCountInString(axisLabelTop)
	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		lines = append(lines, fmt.Sprintf("%*s%s%s", labelWidth, labels[y], axisSeparator, string(grid[y])))
	}
	return lines
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

func valueToRow(v float64, height int) int {
	if height <= 1 {
		return 0
	}
	pos := clampScore(v) / 100
	return int(math.Round((1 - pos) * float64(height-1)))
}

// resample averages buckets when there are more values than columns. Fewer
// values are returned unchanged.
func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// Bar is one labelled row of a horizontal bar chart.
type Bar struct {
	Label string
	Value float64
}

// BarChart renders percentages as horizontal bars scaled to totalWidth.
func BarChart(bars []Bar, totalWidth int) []string {
	if len(bars) == 0 {
		return nil
	}
	labelWidth := 0
	for _, b := range bars {
		if w := displayWidth(b.Label); w > labelWidth {
			labelWidth = w
		}
	}
	const valueWidth = len(" 100.0%")
	barWidth := totalWidth - labelWidth - len(axisSeparator) - valueWidth
	if totalWidth <= 0 {
		barWidth = TerminalWidth() - labelWidth - len(axisSeparator) - valueWidth
	}
	if barWidth < minChartWidth {
		barWidth = minChartWidth
	}

	lines := make([]string, 0, len(bars))
	for _, b := range bars {
		filled := int(math.Round(clampScore(b.Value) / 100 * float64(barWidth)))
		bar := strings.Repeat(string(barFill), filled) + strings.Repeat(" ", barWidth-filled)
		lines = append(lines, fmt.Sprintf("%s%s%s %5.1f%%", padCell(b.Label, labelWidth, false), axisSeparator, bar, b.Value))
	}
	return lines
}

// RenderComparison prints the score of an attempt next to the local average
// of its section.
func RenderComparison(w io.Writer, score float64, sectionAvg float64, hasAvg bool, totalWidth int) error {
	bars := []Bar{{Label: "This attempt", Value: score}}
	if hasAvg {
		bars = append(bars, Bar{Label: "Section average", Value: sectionAvg})
	}
	for _, line := range BarChart(bars, totalWidth) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
