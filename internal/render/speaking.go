package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/recording"
)

// ActionMsg reports the outcome of a recording action started from a key press.
type ActionMsg struct {
	Index int
	Err   error
}

type speakingField struct {
	q       model.Question
	ctx     context.Context
	unit    *recording.Unit
	focused bool
}

func newSpeakingField(q model.Question, store *answers.Store, opts Options) *speakingField {
	profile := opts.Profiles.ForPart(q.SpeakingPart)
	if profile.MaxSeconds <= 0 {
		profile = recording.DefaultProfiles().ForPart(q.SpeakingPart)
	}
	index := q.Index
	unit := recording.NewUnit(opts.Source, profile, opts.Clock, opts.Logger, func(ref string) {
		store.Set(index, ref)
	})
	return &speakingField{q: q, ctx: opts.Context, unit: unit}
}

// Unit exposes the recording unit behind the field.
func (f *speakingField) Unit() *recording.Unit { return f.unit }

func (f *speakingField) Question() model.Question { return f.q }
func (f *speakingField) Kind() Kind               { return KindSpeaking }
func (f *speakingField) SetWidth(int)             {}
func (f *speakingField) Close() error             { return f.unit.Close() }

func (f *speakingField) Focus() tea.Cmd {
	f.focused = true
	return nil
}

func (f *speakingField) Blur() {
	f.focused = false
}

func (f *speakingField) Tick(ctx context.Context) error {
	return f.unit.Tick(ctx)
}

func (f *speakingField) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !f.focused {
		return nil
	}
	index := f.q.Index
	switch key.String() {
	case "r", "enter":
		ctx := f.ctx
		return func() tea.Msg {
			return ActionMsg{Index: index, Err: ignoreWrongPhase(f.unit.Begin(ctx))}
		}
	case "s":
		return func() tea.Msg {
			return ActionMsg{Index: index, Err: ignoreWrongPhase(f.unit.Stop())}
		}
	case "x":
		return func() tea.Msg {
			return ActionMsg{Index: index, Err: ignoreWrongPhase(f.unit.Reset())}
		}
	}
	return nil
}

func ignoreWrongPhase(err error) error {
	if errors.Is(err, recording.ErrWrongPhase) {
		return nil
	}
	return err
}

func (f *speakingField) View() string {
	st := f.unit.State()
	profile := f.unit.Profile()
	var lines []string
	switch st.Phase {
	case recording.Preparing:
		lines = append(lines,
			warnStyle.Render("Preparation: "+FormatClock(st.PrepRemaining)+" remaining"),
			hintStyle.Render("Recording starts automatically when preparation ends."),
		)
	case recording.Recording:
		lines = append(lines,
			liveStyle.Render("● REC "+formatDuration(st.Elapsed))+optionStyle.Render("  "+FormatClock(st.TimeRemaining)+" left"),
		)
	case recording.Completed:
		lines = append(lines, selectedStyle.Render("Recording captured ("+formatDuration(st.Elapsed)+")"))
	default:
		if profile.PrepSeconds > 0 {
			lines = append(lines, optionStyle.Render(fmt.Sprintf("You will have %s to prepare, then up to %s to speak.",
				FormatClock(profile.PrepSeconds), FormatClock(profile.MaxSeconds))))
		} else {
			lines = append(lines, optionStyle.Render("Speak for up to "+FormatClock(profile.MaxSeconds)+"."))
		}
		if st.Err != nil {
			lines = append(lines, errorStyle.Render(describeDeviceError(st.Err)))
		}
	}
	return strings.Join(lines, "\n")
}

func (f *speakingField) Hint() string {
	if !f.focused {
		return ""
	}
	switch f.unit.State().Phase {
	case recording.Preparing:
		return hintStyle.Render("waiting for preparation to end")
	case recording.Recording:
		return hintStyle.Render("s: stop recording")
	case recording.Completed:
		return hintStyle.Render("x: discard and record again")
	default:
		return hintStyle.Render("r: start")
	}
}

func (f *speakingField) Meta() string {
	profile := f.unit.Profile()
	switch profile.Part {
	case 1:
		return "Speaking Part 1 · interview"
	case 2:
		return "Speaking Part 2 · long turn"
	case 3:
		return "Speaking Part 3 · discussion"
	default:
		return "Speaking"
	}
}

func describeDeviceError(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindPermissionDenied:
		return "Microphone access was denied. Check the permissions and press r to try again."
	case apperrors.KindDeviceUnavailable:
		return "No microphone is available. Connect one and press r to try again."
	case apperrors.KindTimeout:
		return "The microphone did not respond in time. Press r to try again."
	default:
		return "Recording failed: " + err.Error()
	}
}

func formatDuration(d time.Duration) string {
	return FormatClock(int(d / time.Second))
}
