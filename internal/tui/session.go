// Package tui is the interactive session screen: a once-a-second
// timer view over an open work session, with pause/resume bracketing
// breaks and a close-out prompt on quit. All persistence goes through
// the recorder; the model only decides when to call it.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okib/flow/internal/recorder"
	"github.com/okib/flow/internal/timeutil"
)

type mode int

const (
	modeRunning mode = iota
	modePaused
	modeNoting
	modeClosing
	modeDone
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	timerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	autosaveStyle = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

type model struct {
	ctx     context.Context
	session *recorder.Session
	tick    time.Duration

	mode       mode
	now        time.Time
	pausedAt   time.Time
	input      string
	autosaveAt string
	err        string
}

func newModel(ctx context.Context, session *recorder.Session, tick time.Duration) model {
	if tick <= 0 {
		tick = time.Second
	}
	return model{
		ctx:     ctx,
		session: session,
		tick:    tick,
		now:     session.Work().BeginAt,
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m.updateTick(time.Time(msg))
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m model) updateTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	if m.mode == modeRunning {
		// Checkpoints ride the display tick; a failed save is shown
		// but the session keeps running on the last durable state.
		saved, err := m.session.TickCheckpoint(m.ctx, now)
		if err != nil {
			m.err = err.Error()
		} else if saved {
			m.err = ""
			m.autosaveAt = timeutil.Format(now)
		}
	}
	if m.mode == modeDone {
		return m, nil
	}
	return m, m.tickCmd()
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeRunning:
		switch msg.String() {
		case "p":
			m.mode = modePaused
			m.pausedAt = m.now
		case "n":
			m.mode = modeNoting
			m.input = ""
		case "q", "ctrl+c":
			m.mode = modeClosing
			m.input = ""
		}
	case modePaused:
		switch msg.String() {
		case "p", "enter":
			if _, err := m.session.RecordBreak(m.ctx, m.pausedAt, m.now); err != nil {
				m.err = err.Error()
			} else {
				m.err = ""
			}
			m.mode = modeRunning
		case "q", "ctrl+c":
			// Quitting from pause still brackets the break first.
			if _, err := m.session.RecordBreak(m.ctx, m.pausedAt, m.now); err != nil {
				m.err = err.Error()
			}
			m.mode = modeClosing
			m.input = ""
		}
	case modeNoting:
		return m.updateTextEntry(msg, func(text string) (tea.Model, tea.Cmd) {
			if text != "" {
				if _, err := m.session.AddNote(m.ctx, m.now, text); err != nil {
					m.err = err.Error()
				}
			}
			m.mode = modeRunning
			return m, nil
		})
	case modeClosing:
		return m.updateTextEntry(msg, func(text string) (tea.Model, tea.Cmd) {
			if err := m.session.Close(m.ctx, m.now, text); err != nil {
				m.err = err.Error()
				m.mode = modeRunning
				return m, nil
			}
			m.mode = modeDone
			return m, tea.Quit
		})
	}
	return m, nil
}

// updateTextEntry is the shared line editor for the note and close-out
// prompts: runes append, backspace deletes, enter submits, esc cancels
// back to the running view.
func (m model) updateTextEntry(msg tea.KeyMsg, submit func(string) (tea.Model, tea.Cmd)) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return submit(strings.TrimSpace(m.input))
	case tea.KeyEsc:
		m.mode = modeRunning
		m.input = ""
		return m, nil
	case tea.KeyBackspace:
		if m.input != "" {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	task := m.session.Task()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Working on "+task.Name) + "\n\n")

	elapsed := timeutil.FormatSeconds(m.session.ElapsedSeconds(m.now))
	focused := timeutil.FormatSeconds(m.session.FocusedSeconds(m.now))
	b.WriteString("Elapsed: " + timerStyle.Render(elapsed) + "\n")
	b.WriteString("Focused: " + timerStyle.Render(focused) + "\n")
	if m.session.BreakSeconds() > 0 {
		b.WriteString("Breaks:  " + timeutil.FormatSeconds(m.session.BreakSeconds()) + "\n")
	}
	if m.autosaveAt != "" {
		b.WriteString(autosaveStyle.Render("Last auto-saved at "+m.autosaveAt) + "\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render("save failed: "+m.err) + "\n")
	}
	b.WriteString("\n")

	switch m.mode {
	case modePaused:
		b.WriteString(pausedStyle.Render("PAUSED") + " since " + timeutil.Format(m.pausedAt) + "\n")
		b.WriteString(helpStyle.Render("[p] resume  [q] stop") + "\n")
	case modeNoting:
		b.WriteString("Note: " + m.input + "█\n")
		b.WriteString(helpStyle.Render("[enter] save note  [esc] cancel") + "\n")
	case modeClosing:
		b.WriteString("Closing note: " + m.input + "█\n")
		b.WriteString(helpStyle.Render("[enter] end session  [esc] keep working") + "\n")
	default:
		b.WriteString(helpStyle.Render("[p] pause  [n] note  [q] stop") + "\n")
	}
	return b.String()
}

// Run drives the session screen until the user closes the session.
func Run(ctx context.Context, session *recorder.Session, tick time.Duration) error {
	m := newModel(ctx, session, tick)
	p := tea.NewProgram(m)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case <-ctx.Done():
		p.Quit()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}
