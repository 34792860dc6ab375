// internal/tui/progress.go

// Package tui renders live benchmark progress in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/mwiater/emailwriter/internal/benchmark"
)

// RunFunc runs a benchmark, reporting phase transitions through onPhase.
type RunFunc func(ctx context.Context, onPhase func(benchmark.PhaseEvent)) (benchmark.Result, error)

type phaseMsg benchmark.PhaseEvent

type doneMsg struct {
	result benchmark.Result
	err    error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("33")).Padding(0, 1)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("34")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type phaseLine struct {
	event   benchmark.PhaseEvent
	started time.Time
}

// ProgressModel is the Bubble Tea model behind RunWithProgress.
type ProgressModel struct {
	title    string
	spinner  spinner.Model
	phases   []phaseLine
	done     bool
	aborted  bool
	err      error
	finished benchmark.Result
}

func NewProgressModel(title string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return ProgressModel{title: title, spinner: s}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	case phaseMsg:
		ev := benchmark.PhaseEvent(msg)
		if ev.State == benchmark.PhaseStarted {
			m.phases = append(m.phases, phaseLine{event: ev, started: time.Now()})
			return m, nil
		}
		for i := range m.phases {
			if m.phases[i].event.Phase == ev.Phase && m.phases[i].event.State == benchmark.PhaseStarted {
				m.phases[i].event = ev
			}
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.finished = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	for _, p := range m.phases {
		ev := p.event
		label := fmt.Sprintf("phase %s  %-14s %d requests", ev.Phase, ev.Strategy, ev.Requests)
		switch ev.State {
		case benchmark.PhaseStarted:
			elapsed := time.Since(p.started).Truncate(100 * time.Millisecond)
			fmt.Fprintf(&b, "%s %s %s %s\n", m.spinner.View(), runningStyle.Render("running"), label, elapsed)
		case benchmark.PhaseFinished:
			fmt.Fprintf(&b, "  %s %s %d ms\n", doneStyle.Render("done"), label, ev.Elapsed.Milliseconds())
		case benchmark.PhaseFailed:
			fmt.Fprintf(&b, "  %s %s %v\n", errorStyle.Render("failed"), label, ev.Err)
		}
	}

	if !m.done && !m.aborted {
		b.WriteString(helpStyle.Render("q: abort"))
		b.WriteString("\n")
	}
	return b.String()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RunWithProgress runs fn, showing a live view on out when it is a terminal and one
// line per phase transition otherwise. Aborting the view cancels fn's context; the
// call returns only after fn has.
func RunWithProgress(ctx context.Context, out io.Writer, title string, fn RunFunc) (benchmark.Result, error) {
	if !IsTerminal(out) {
		fmt.Fprintln(out, title)
		return fn(ctx, func(ev benchmark.PhaseEvent) {
			fmt.Fprintln(out, FormatEvent(ev))
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title), tea.WithOutput(out), tea.WithContext(ctx))

	resCh := make(chan doneMsg, 1)
	go func() {
		res, err := fn(ctx, func(ev benchmark.PhaseEvent) { p.Send(phaseMsg(ev)) })
		msg := doneMsg{result: res, err: err}
		resCh <- msg
		p.Send(msg)
	}()

	_, runErr := p.Run()
	cancel()
	done := <-resCh
	if done.err != nil {
		return done.result, done.err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return done.result, fmt.Errorf("progress view: %w", runErr)
	}
	return done.result, nil
}

// FormatEvent renders ev as a single plain line.
func FormatEvent(ev benchmark.PhaseEvent) string {
	switch ev.State {
	case benchmark.PhaseStarted:
		return fmt.Sprintf("[%s] phase %s (%s): %d requests started", ev.Mode, ev.Phase, ev.Strategy, ev.Requests)
	case benchmark.PhaseFinished:
		return fmt.Sprintf("[%s] phase %s (%s): finished in %d ms", ev.Mode, ev.Phase, ev.Strategy, ev.Elapsed.Milliseconds())
	default:
		return fmt.Sprintf("[%s] phase %s (%s): failed after %d ms: %v", ev.Mode, ev.Phase, ev.Strategy, ev.Elapsed.Milliseconds(), ev.Err)
	}
}
