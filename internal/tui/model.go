// Package tui provides the Bubble Tea test-taking interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/render"
	"github.com/verte-zerg/ieltsmock/internal/session"
	"github.com/verte-zerg/ieltsmock/internal/stats"
)

const (
	defaultTickInterval  = 250 * time.Millisecond
	defaultAverageWindow = 50
	urgentSeconds        = 60
)

// History provides the local section averages shown next to the results.
type History interface {
	SectionAggregates(ctx context.Context, window int) ([]model.SectionAggregate, error)
}

// Inbox receives the results handoff from the session. Deliver is meant to
// be used as the session sink.
type Inbox struct {
	ch chan model.Handoff
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{ch: make(chan model.Handoff, 1)}
}

// Deliver stores the handoff. A second handoff replaces an unread one.
func (i *Inbox) Deliver(h model.Handoff) {
	for {
		select {
		case i.ch <- h:
			return
		default:
		}
		select {
		case <-i.ch:
		default:
		}
	}
}

func (i *Inbox) take() (model.Handoff, bool) {
	select {
	case h := <-i.ch:
		return h, true
	default:
		return model.Handoff{}, false
	}
}

// Config wires the test screen.
type Config struct {
	Controller    *session.Controller
	Inbox         *Inbox
	FieldOptions  render.Options
	History       History
	AverageWindow int
	TickInterval  time.Duration
	Logger        *slog.Logger
}

type (
	loadedMsg     struct{ err error }
	tickMsg       time.Time
	tickDoneMsg   struct{ err error }
	submitDoneMsg struct{ err error }
	averageMsg    struct {
		avg float64
		ok  bool
	}
)

// Model implements the Bubble Tea test-taking UI.
type Model struct {
	cfg    Config
	ctrl   *session.Controller
	inbox  *Inbox
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	width  int
	height int

	fields  []render.Field
	current int
	confirm *session.Decision
	ticking bool
	status  string

	handoff    *model.Handoff
	trigger    model.Trigger
	sectionAvg float64
	hasAvg     bool
	review     viewport.Model
	quitting   bool
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	answeredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C89A3A")).Padding(1, 2)
	bandStyles     = map[string]lipgloss.Style{
		"good": answeredStyle.Bold(true),
		"fair": currentStyle.Bold(true),
		"poor": incorrectStyle.Bold(true),
	}
)

// NewModel constructs the test screen. The session must still be loading.
func NewModel(ctx context.Context, cfg Config) *Model {
	if cfg.Inbox == nil {
		cfg.Inbox = NewInbox()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.AverageWindow <= 0 {
		cfg.AverageWindow = defaultAverageWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		cfg:    cfg,
		ctrl:   cfg.Controller,
		inbox:  cfg.Inbox,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		review: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.scheduleTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, f := range m.fields {
			f.SetWidth(m.contentWidth())
		}
		m.resizeReview()
		return m, nil
	case loadedMsg:
		if msg.err != nil {
			m.logger.Warn("test load failed", "error", msg.err)
			return m, nil
		}
		return m, m.buildFields()
	case tickMsg:
		if m.quitting || m.handoff != nil {
			return m, nil
		}
		next := m.scheduleTick()
		if m.ticking {
			return m, next
		}
		switch m.ctrl.Snapshot().Phase {
		case session.PhaseInProgress, session.PhaseSubmitting:
			m.ticking = true
			return m, tea.Batch(m.tickCmd(), next)
		}
		return m, next
	case tickDoneMsg:
		m.ticking = false
		if msg.err != nil {
			m.status = describeError(msg.err) + " Time is up. Your answers are kept and will be sent again shortly."
		}
		return m, m.collectResults()
	case submitDoneMsg:
		if msg.err != nil {
			m.status = describeError(msg.err) + " Your answers are kept. Press ctrl+s to try again."
		}
		return m, m.collectResults()
	case averageMsg:
		m.sectionAvg = msg.avg
		m.hasAvg = msg.ok
		return m, nil
	case render.ActionMsg:
		if msg.Err != nil {
			m.logger.Debug("recording action failed", "question", msg.Index, "error", msg.Err)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if f := m.focused(); f != nil {
			return m, f.Update(msg)
		}
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.handoff != nil {
		return m.layout(m.renderResults(), footerStyle.Render("↑/↓ scroll · q quit"))
	}
	snap := m.ctrl.Snapshot()
	switch snap.Phase {
	case session.PhaseLoading:
		return m.layout(pendingStyle.Render("Loading test..."), "")
	case session.PhaseError:
		body := incorrectStyle.Render(describeError(snap.Err))
		return m.layout(body, footerStyle.Render("r retry · q quit"))
	}
	return m.layout(m.renderQuestion(snap), m.renderFooter(snap))
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.handoff != nil {
		switch msg.String() {
		case "q", "esc", "enter":
			return m.quit()
		}
		var cmd tea.Cmd
		m.review, cmd = m.review.Update(msg)
		return m, cmd
	}

	snap := m.ctrl.Snapshot()
	switch snap.Phase {
	case session.PhaseError:
		switch msg.String() {
		case "r":
			return m, m.loadCmd()
		case "q", "esc":
			return m.quit()
		}
		return m, nil
	case session.PhaseInProgress:
	default:
		return m, nil
	}

	if m.confirm != nil {
		switch msg.String() {
		case "y", "enter":
			m.confirm = nil
			return m, m.submitCmd()
		case "n", "esc":
			m.confirm = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "pgdown":
		return m, m.focus(m.current + 1)
	case "shift+tab", "pgup":
		return m, m.focus(m.current - 1)
	case "ctrl+s":
		decision := m.ctrl.RequestSubmit()
		if !decision.Allowed {
			return m, nil
		}
		if decision.NeedsConfirm {
			m.confirm = &decision
			return m, nil
		}
		return m, m.submitCmd()
	}
	if snap.Expired {
		return m, nil
	}
	if f := m.focused(); f != nil {
		return m, f.Update(msg)
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	if err := m.ctrl.Close(); err != nil {
		m.logger.Warn("failed to release session", "error", err)
	}
	return m, tea.Quit
}

func (m *Model) loadCmd() tea.Cmd {
	ctrl := m.ctrl
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: ctrl.Load(ctx)}
	}
}

func (m *Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) tickCmd() tea.Cmd {
	ctrl := m.ctrl
	ctx := m.ctx
	return func() tea.Msg {
		return tickDoneMsg{err: ctrl.Tick(ctx)}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	m.status = ""
	ctrl := m.ctrl
	ctx := m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.Submit(ctx, model.TriggerManual)}
	}
}

func (m *Model) buildFields() tea.Cmd {
	test := m.ctrl.Test()
	opts := m.cfg.FieldOptions
	opts.Context = m.ctx
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	m.fields = make([]render.Field, 0, len(test.Questions))
	for _, q := range test.Questions {
		f := render.New(q, m.ctrl.Answers(), opts)
		if tracked, ok := f.(session.Tracked); ok {
			m.ctrl.Track(tracked)
		}
		f.SetWidth(m.contentWidth())
		m.fields = append(m.fields, f)
	}
	m.current = 0
	if len(m.fields) == 0 {
		return nil
	}
	return m.fields[0].Focus()
}

func (m *Model) focused() render.Field {
	if m.current < 0 || m.current >= len(m.fields) {
		return nil
	}
	return m.fields[m.current]
}

func (m *Model) focus(index int) tea.Cmd {
	if len(m.fields) == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if index >= len(m.fields) {
		index = len(m.fields) - 1
	}
	if index == m.current {
		return nil
	}
	m.fields[m.current].Blur()
	m.current = index
	return m.fields[index].Focus()
}

func (m *Model) collectResults() tea.Cmd {
	h, ok := m.inbox.take()
	if !ok {
		return nil
	}
	m.handoff = &h
	m.confirm = nil
	m.status = ""
	snap := m.ctrl.Snapshot()
	m.trigger = snap.Trigger
	m.resizeReview()
	m.review.SetContent(m.renderReview(snap.Test))
	return m.averageCmd(snap.Test.Section)
}

func (m *Model) averageCmd(section model.Section) tea.Cmd {
	if m.cfg.History == nil || section == "" {
		return nil
	}
	history := m.cfg.History
	window := m.cfg.AverageWindow
	ctx := m.ctx
	logger := m.logger
	return func() tea.Msg {
		aggs, err := history.SectionAggregates(ctx, window)
		if err != nil {
			logger.Warn("failed to load section averages", "error", err)
			return averageMsg{}
		}
		avg, ok := stats.SectionAverage(aggs, section)
		return averageMsg{avg: avg, ok: ok}
	}
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = m.width
	}
	return w
}

func (m *Model) layout(content, footer string) string {
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	content = lipgloss.NewStyle().Width(m.contentWidth()).Render(content)
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHeader(snap session.Snapshot) string {
	title := titleStyle.Render(snap.Test.Title)
	meta := string(snap.Test.Section)
	if snap.Test.Difficulty != "" {
		meta += " · " + snap.Test.Difficulty
	}
	timer := "Time left " + render.FormatClock(snap.Remaining)
	if snap.Remaining <= urgentSeconds {
		timer = incorrectStyle.Bold(true).Render(timer)
	} else {
		timer = currentStyle.Render(timer)
	}
	counter := fmt.Sprintf("Answered %d of %d", snap.Answered, snap.Total)
	return title + "  " + pendingStyle.Render(meta) + "\n" + counter + "  " + timer
}

func (m *Model) renderQuestion(snap session.Snapshot) string {
	var sections []string
	sections = append(sections, m.renderHeader(snap))
	width := m.contentWidth()

	answers := m.ctrl.Answers()
	nav := buildNavigator(len(m.fields), m.current, func(i int) bool {
		return strings.TrimSpace(answers.Get(i)) != ""
	})
	sections = append(sections, wrapStyledCells(nav, width))

	if f := m.focused(); f != nil {
		q := f.Question()
		heading := fmt.Sprintf("Question %d of %d", q.Index+1, len(m.fields))
		if meta := f.Meta(); meta != "" {
			heading += " · " + meta
		}
		block := []string{pendingStyle.Render(heading), wrapText(q.QuestionText, width, textStyle)}
		if media := mediaLine(q); media != "" {
			block = append(block, media)
		}
		block = append(block, "", f.View())
		if hint := f.Hint(); hint != "" {
			block = append(block, hint)
		}
		sections = append(sections, strings.Join(block, "\n"))
	}

	if m.status != "" {
		sections = append(sections, incorrectStyle.Render(m.status))
	}
	if m.confirm != nil {
		sections = append(sections, modalStyle.Render(confirmText(*m.confirm)))
	}
	return strings.Join(sections, "\n\n")
}

func (m *Model) renderFooter(snap session.Snapshot) string {
	progress := 0
	if snap.Total > 0 {
		progress = snap.Answered * 100 / snap.Total
	}
	segments := []string{fmt.Sprintf("Answered %d of %d · %d%%", snap.Answered, snap.Total, progress)}
	switch snap.Phase {
	case session.PhaseSubmitting:
		segments = append(segments, "Submitting answers...")
	default:
		segments = append(segments, "tab next · shift+tab previous · ctrl+s submit · ctrl+c quit")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func confirmText(d session.Decision) string {
	return fmt.Sprintf("You have answered %d of %d questions.\nUnanswered questions will be submitted empty.\n\nSubmit now? (y/n)", d.Answered, d.Total)
}

func mediaLine(q model.Question) string {
	if q.Media == "" {
		return ""
	}
	switch q.MediaType {
	case model.MediaImage:
		return currentStyle.Render("[image] " + q.Media)
	case model.MediaAudio:
		return currentStyle.Render("[audio] " + q.Media)
	default:
		return currentStyle.Render("[media] " + q.Media)
	}
}
