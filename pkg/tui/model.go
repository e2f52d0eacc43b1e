// Package tui renders live crawl progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DrSkyle/vapora/pkg/engine/crawler"
	"github.com/DrSkyle/vapora/pkg/engine/report"
)

// ProgressMsg carries a crawler progress event into the program.
type ProgressMsg crawler.Progress

// DoneMsg ends the program with the pipeline outcome.
type DoneMsg struct {
	Summary *report.Summary
	Err     error
}

type tickMsg time.Time

type Model struct {
	spinner  spinner.Model
	progress progress.Model

	seed     string
	maxNodes int
	cancel   context.CancelFunc

	last      crawler.Progress
	started   time.Time
	now       time.Time
	stopping  bool
	done      bool
	summary   *report.Summary
	err       error
	width     int
	tickCount int
}

// NewModel builds a model for a crawl of seed bounded by maxNodes. cancel is
// invoked on ctrl+c; the model keeps running until DoneMsg so the
// checkpoint can still be written.
func NewModel(seed string, maxNodes int, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	now := time.Now()
	return Model{
		spinner:  s,
		progress: progress.New(progress.WithGradient("#00FF99", "#00CCFF"), progress.WithWidth(40)),
		seed:     seed,
		maxNodes: maxNodes,
		cancel:   cancel,
		started:  now,
		now:      now,
		last:     crawler.Progress{Phase: crawler.PhaseCrawl},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case ProgressMsg:
		m.last = crawler.Progress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
		return m, tea.Quit

	case tickMsg:
		m.now = time.Time(msg)
		m.tickCount++
		if m.done {
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Fraction is the share of the node budget discovered so far.
func (m Model) Fraction() float64 {
	if m.maxNodes <= 0 {
		return 0
	}
	switch m.last.Phase {
	case crawler.PhaseEnrich, crawler.PhaseGroups, crawler.PhaseDone:
		return 1
	}
	f := float64(m.last.Nodes) / float64(m.maxNodes)
	return min(f, 1)
}

// Summary returns the outcome once DoneMsg has arrived.
func (m Model) Summary() (*report.Summary, error) {
	return m.summary, m.err
}

// Run drives work under a bubbletea program, forwarding its progress
// events. It returns work's result after the program exits.
func Run(ctx context.Context, seed string, maxNodes int, work func(ctx context.Context, onProgress func(crawler.Progress)) (*report.Summary, error), opts ...tea.ProgramOption) (*report.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(seed, maxNodes, cancel), opts...)

	type outcome struct {
		summary *report.Summary
		err     error
	}
	result := make(chan outcome, 1)
	go func() {
		s, err := work(ctx, func(pr crawler.Progress) { p.Send(ProgressMsg(pr)) })
		result <- outcome{s, err}
		p.Send(DoneMsg{Summary: s, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return nil, fmt.Errorf("tui: %w", err)
	}
	out := <-result
	return out.summary, out.err
}
