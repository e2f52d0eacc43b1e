package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/DrSkyle/vapora/pkg/engine/crawler"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VAPORA") + subtle.Render(" seed "+m.seed) + "\n\n")

	if m.done {
		b.WriteString(m.viewDone())
		return b.String()
	}

	status := phaseLabel(m.last.Phase)
	if m.stopping {
		status = warning.Render("stopping, writing checkpoint...")
	}
	fmt.Fprintf(&b, " %s %s\n\n", m.spinner.View(), status)
	b.WriteString(" " + m.progress.ViewAs(m.Fraction()) + "\n\n")
	b.WriteString(m.viewHUD() + "\n")
	b.WriteString(subtle.Render(" q / ctrl+c to stop and checkpoint") + "\n")
	return b.String()
}

func phaseLabel(p crawler.Phase) string {
	switch p {
	case crawler.PhaseEnrich:
		return "Enriching profiles and bans"
	case crawler.PhaseGroups:
		return "Linking shared groups"
	case crawler.PhaseDone:
		return "Analysing graph"
	default:
		return "Crawling friend lists"
	}
}

func hudCell(label string, value any) string {
	return hudLabelStyle.Render(label) + hudValueStyle.Render(fmt.Sprint(value))
}

func (m Model) viewHUD() string {
	elapsed := m.now.Sub(m.started).Truncate(time.Second)
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		hudCell("NODES", fmt.Sprintf("%d/%d", m.last.Nodes, m.maxNodes)), "   ",
		hudCell("VISITED", m.last.Visited), "   ",
		hudCell("QUEUE", m.last.Queue), "   ",
		hudCell("DEPTH", m.last.Depth), "   ",
		hudCell("ELAPSED", elapsed),
	)
	return hudStyle.Render(row)
}

func (m Model) viewDone() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(" " + danger.Render("Run failed: ") + m.err.Error() + "\n")
	}
	s := m.summary
	if s == nil {
		return b.String()
	}
	state := special.Render("complete")
	if !s.Complete {
		state = warning.Render(fmt.Sprintf("partial, %d queued", s.QueueRemaining))
	}
	fmt.Fprintf(&b, " Crawl %s in %s\n", state, s.Duration().Truncate(time.Second))
	fmt.Fprintf(&b, " %s\n\n", hudCell("NODES", s.Graph.Nodes)+"   "+hudCell("EDGES", s.Graph.Edges)+"   "+
		hudCell("COMMUNITIES", s.Graph.Communities)+"   "+hudCell("HUBS", len(s.Graph.Hubs)))

	if len(s.TopCandidates) > 0 {
		b.WriteString(titleStyle.Render("PROBABLE ASSOCIATES") + "\n")
		for i, c := range s.TopCandidates {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  %-20s score %.3f  mutual %d\n", c.ID, c.Score, c.Mutual)
		}
		b.WriteString("\n")
	}
	if len(s.Graph.Hubs) > 0 {
		fmt.Fprintf(&b, " %s %s\n", iconHub, strings.Join(s.Graph.Hubs, ", "))
	}
	if s.Flagged > 0 {
		fmt.Fprintf(&b, " %s %d identities matched rules\n", iconFlag, s.Flagged)
	}
	if s.Location != "" {
		b.WriteString(subtle.Render(" written to "+s.Location) + "\n")
	}
	return b.String()
}
