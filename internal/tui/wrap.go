package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledCell struct {
	s       string
	width   int
	isSpace bool
}

// buildNavigator renders one numbered cell per question, separated by spaces.
func buildNavigator(total, current int, answered func(int) bool) []styledCell {
	out := make([]styledCell, 0, total*2)
	for i := 0; i < total; i++ {
		if i > 0 {
			out = append(out, styledCell{s: " ", width: 1, isSpace: true})
		}
		label := fmt.Sprintf("%d", i+1)
		style := pendingStyle
		if answered(i) {
			style = answeredStyle
		}
		if i == current {
			style = style.Underline(true).Bold(true)
		}
		out = append(out, styledCell{s: style.Render(label), width: runewidth.StringWidth(label)})
	}
	return out
}

// textCells splits text into one cell per rune, rendered with style.
func textCells(text string, style lipgloss.Style) []styledCell {
	out := make([]styledCell, 0, len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		out = append(out, styledCell{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

// wrapText wraps each paragraph of text at word boundaries.
func wrapText(text string, width int, style lipgloss.Style) string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = wrapStyledCells(textCells(p, style), width)
	}
	return strings.Join(out, "\n")
}

func renderCells(cells []styledCell) string {
	var b strings.Builder
	for _, item := range cells {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledCells(cells []styledCell, width int) string {
	if width <= 0 {
		return renderCells(cells)
	}
	var out strings.Builder
	line := make([]styledCell, 0, len(cells))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(cells); {
		item := cells[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderCells(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledCell{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderCells(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderCells(line))
	return out.String()
}

func lineWidthOf(line []styledCell) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledCell) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
