// Package statsui provides the Bubble Tea attempt history dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/stats"
	"github.com/verte-zerg/ieltsmock/internal/store"
)

const (
	tabOverview = iota
	tabAttempts
	tabSections
)

const trendHeight = 8

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea history UI.
type Model struct {
	store *store.Store
	cfg   model.HistoryConfig

	report stats.Report
	errMsg string

	tabs         []string
	activeTab    int
	overview     viewport.Model
	attemptTable table.Model
	sectionTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	reviewMode bool
	review     viewport.Model
	reviewErr  string
}

// NewModel constructs a history UI model.
func NewModel(st *store.Store, cfg model.HistoryConfig) *Model {
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 1
	}
	m := &Model{
		store:    st,
		cfg:      cfg,
		tabs:     []string{"Overview", "Attempts", "Sections"},
		overview: viewport.New(0, 0),
		review:   viewport.New(0, 0),
	}
	m.initInputs()
	m.attemptTable = newTable(attemptColumns())
	m.sectionTable = newTable(sectionColumns())
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.reviewMode {
			return m.updateReview(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabAttempts {
				m.openReview()
			}
			return m, nil
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabAttempts:
			m.attemptTable, cmd = m.attemptTable.Update(msg)
		case tabSections:
			m.sectionTable, cmd = m.sectionTable.Update(msg)
		default:
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.reviewMode {
		return fitLines(m.renderReviewModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Section: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Average window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[0].SetValue(m.cfg.Section)
	if m.cfg.Since != nil {
		m.filterInputs[1].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = maxInt(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	for _, t := range []*table.Model{&m.attemptTable, &m.sectionTable} {
		t.SetWidth(m.width)
		t.SetHeight(maxInt(1, bodyHeight-1))
	}
	m.review.Width = modalInnerWidth(m.width)
	m.review.Height = maxInt(3, m.height-10)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	next := m.activeTab + delta
	if next < 0 {
		next = len(m.tabs) - 1
	}
	if next >= len(m.tabs) {
		next = 0
	}
	m.activeTab = next
	m.attemptTable.Blur()
	m.sectionTable.Blur()
	switch m.activeTab {
	case tabAttempts:
		m.attemptTable.Focus()
	case tabSections:
		m.sectionTable.Focus()
	}
}

func (m *Model) gotoEdge(top bool) {
	switch m.activeTab {
	case tabAttempts:
		if top {
			m.attemptTable.GotoTop()
		} else {
			m.attemptTable.GotoBottom()
		}
	case tabSections:
		if top {
			m.sectionTable.GotoTop()
		} else {
			m.sectionTable.GotoBottom()
		}
	default:
		if top {
			m.overview.GotoTop()
		} else {
			m.overview.GotoBottom()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs(), m.width) + "\n" + padLines(m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	section := m.cfg.Section
	if section == "" {
		section = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: section=%s  since=%s  last=%s  window=%d", section, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabAttempts {
		help = "Nav: left/right  Select: up/down  Review: enter  Settings: /  Quit: q"
	}
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	switch m.activeTab {
	case tabAttempts:
		if len(m.report.Attempts) == 0 {
			return fitLines("No attempts found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.attemptTable.View()), m.width, height)
	case tabSections:
		if len(m.report.Summary.Sections) == 0 {
			return fitLines("No section stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.sectionTable.View()), m.width, height)
	default:
		return fitLines(m.overview.View(), m.width, height)
	}
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.overview.SetContent("Failed to load history.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.attemptTable.SetRows(attemptRows(report.LatestFirst()))
	m.attemptTable.GotoTop()
	m.sectionTable.SetRows(sectionRows(report.Summary.Sections, report.SectionsWindow))
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report, m.cfg.CurveWindow, width))
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Attempts) == 0 {
		return "No attempts found. Take a test with `ieltsmock take <test-id>`."
	}
	parts := []string{renderSummaryCards(report.Summary, width)}

	var buf bytes.Buffer
	if err := stats.RenderTrend(&buf, report.Attempts, window, width, trendHeight); err != nil {
		parts = append(parts, fmt.Sprintf("Failed to render trend: %v", err))
	} else {
		parts = append(parts, strings.TrimRight(buf.String(), "\n"))
	}
	parts = append(parts, renderDistribution(report.Distribution, width))
	return strings.Join(parts, "\n\n")
}

func renderSummaryCards(s stats.Summary, width int) string {
	cards := []string{
		metricCard("Attempts", strconv.Itoa(s.Attempts)),
		metricCard("Average", fmt.Sprintf("%.1f%%", s.Average)),
		metricCard("Best", fmt.Sprintf("%.1f%%", s.Best)),
	}
	for _, agg := range s.Sections {
		cards = append(cards, metricCard(string(agg.Section), fmt.Sprintf("%.1f%%", stats.Average(agg))))
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...)
	if len(cards) == 3 {
		return row1
	}
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderDistribution(buckets []stats.Bucket, width int) string {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total == 0 {
		return ""
	}
	bars := make([]stats.Bar, 0, len(buckets))
	for _, b := range buckets {
		bars = append(bars, stats.Bar{Label: b.Label, Value: stats.Percent(b.Count, total)})
	}
	return "Score distribution (share of attempts)\n" + strings.Join(stats.BarChart(bars, width), "\n")
}

func attemptColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Test", Width: 28},
		{Title: "Section", Width: 9},
		{Title: "Score", Width: 6},
		{Title: "Correct", Width: 7},
		{Title: "Time", Width: 6},
		{Title: "Submit", Width: 7},
	}
}

func attemptRows(attempts []model.Attempt) []table.Row {
	rows := make([]table.Row, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, table.Row(stats.AttemptRow(a)))
	}
	return rows
}

func sectionColumns() []table.Column {
	return []table.Column{
		{Title: "Section", Width: 9},
		{Title: "Attempts", Width: 8},
		{Title: "Average", Width: 8},
		{Title: "Best", Width: 7},
		{Title: "Correct", Width: 9},
		{Title: "Recent avg", Width: 10},
		{Title: "Band", Width: 5},
	}
}

func sectionRows(aggs, window []model.SectionAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		avg := stats.Average(agg)
		recent := "-"
		if v, ok := stats.SectionAverage(window, agg.Section); ok {
			recent = fmt.Sprintf("%.1f%%", v)
		}
		rows = append(rows, table.Row{
			string(agg.Section),
			strconv.Itoa(agg.Attempts),
			fmt.Sprintf("%.1f%%", avg),
			fmt.Sprintf("%.1f%%", agg.Best),
			fmt.Sprintf("%d/%d", agg.Correct, agg.Total),
			recent,
			stats.BandFor(avg).String(),
		})
	}
	return rows
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	section := ""
	if raw := strings.TrimSpace(m.filterInputs[0].Value()); raw != "" {
		parsed, ok := model.ParseSection(raw)
		if !ok {
			return fmt.Errorf("invalid section (use Listening, Reading, Writing or Speaking)")
		}
		section = string(parsed)
	}

	var since *time.Time
	if raw := strings.TrimSpace(m.filterInputs[1].Value()); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	last := 0
	if raw := strings.TrimSpace(m.filterInputs[2].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	window := 1
	if raw := strings.TrimSpace(m.filterInputs[3].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid average window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg = model.HistoryConfig{
		Section:     section,
		Since:       since,
		Last:        last,
		CurveWindow: window,
	}
	return nil
}

func (m *Model) selectedAttempt() (model.Attempt, bool) {
	latest := m.report.LatestFirst()
	idx := m.attemptTable.Cursor()
	if idx < 0 || idx >= len(latest) {
		return model.Attempt{}, false
	}
	return latest[idx], true
}

func (m *Model) openReview() {
	attempt, ok := m.selectedAttempt()
	if !ok {
		return
	}
	m.reviewMode = true
	m.reviewErr = ""
	answers, err := m.store.ListAttemptAnswers(context.Background(), attempt.ID)
	if err != nil {
		m.reviewErr = err.Error()
		m.review.SetContent("")
		return
	}
	m.review.SetContent(renderAttemptReview(attempt, answers))
	m.review.GotoTop()
}

func (m *Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q":
		m.reviewMode = false
		return m, nil
	}
	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

func renderAttemptReview(a model.Attempt, answers []model.AttemptAnswer) string {
	lines := []string{
		cardValueStyle.Render(a.TestTitle),
		fmt.Sprintf("%s · %.0f%% (%s) · %d/%d correct · submitted %s", a.Section, a.Score, stats.BandFor(a.Score), a.Correct, a.Total, a.Trigger),
		"",
	}
	if len(answers) == 0 {
		lines = append(lines, headerStyle.Render("No answers were stored for this attempt."))
	}
	for _, ans := range answers {
		mark := errorStyle.Render("✗")
		if ans.IsCorrect {
			mark = goodStyle.Render("✓")
		}
		answer := ans.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "(no answer)"
		}
		lines = append(lines, fmt.Sprintf("%s Q%d %s", mark, ans.Index+1, answer))
		if !ans.IsCorrect && ans.CorrectAnswer != "" {
			lines = append(lines, "    correct: "+ans.CorrectAnswer)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderReviewModal() string {
	body := []string{cardValueStyle.Render("Attempt review")}
	if m.reviewErr != "" {
		body = append(body, errorStyle.Render("Failed to load answers: "+m.reviewErr))
	} else {
		body = append(body, m.review.View())
	}
	body = append(body, headerStyle.Render("Scroll: up/down  Close: esc"))
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
