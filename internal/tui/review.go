package tui

import (
	"context"
	"fmt"
	"strings"

	"repolens/internal/review"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

type reviewModel struct {
	spinner  spinner.Model
	focus    string
	events   []string
	done     bool
	findings []review.Finding
	summary  string
}

func newReviewModel(focus string) reviewModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return reviewModel{spinner: sp, focus: focus}
}

// reviewEventMsg carries one agent event into the UI.
type reviewEventMsg struct {
	line string
}

// reviewDoneMsg is sent when the agent run finishes.
type reviewDoneMsg struct {
	findings []review.Finding
	summary  string
}

func runReview(deps Deps, focus string) tea.Cmd {
	return func() tea.Msg {
		send := func(msg tea.Msg) {
			if deps.program != nil && deps.program.p != nil {
				deps.program.p.Send(msg)
			}
		}

		sink := func(ev review.Event) {
			switch ev.Type {
			case review.EventReviewDone:
				send(reviewEventMsg{line: fmt.Sprintf("reviewed %s: %d finding(s)", ev.Path, ev.Findings)})
			}
		}

		agent := deps.NewAgent(sink)
		state := agent.Run(context.Background(), review.Request{Focus: focus})

		summary := ""
		if len(state.Observations) > 0 {
			summary = state.Observations[len(state.Observations)-1]
		}
		return reviewDoneMsg{findings: state.Findings, summary: summary}
	}
}

func (m reviewModel) Update(msg tea.Msg) (reviewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reviewEventMsg:
		m.events = append(m.events, msg.line)
		return m, nil
	case reviewDoneMsg:
		m.done = true
		m.findings = msg.findings
		m.summary = msg.summary
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m reviewModel) View() string {
	s := "\n"
	s += titleStyle.Render("  Review") + "\n"
	if m.focus != "" {
		s += subtitleStyle.Render("  focus: "+m.focus) + "\n"
	}
	s += "\n"

	for _, line := range m.events {
		s += dimStyle.Render("  "+line) + "\n"
	}

	if !m.done {
		s += fmt.Sprintf("\n  %s Reviewing...\n", m.spinner.View())
		return s
	}

	s += "\n"
	if len(m.findings) > 0 {
		s += findingStyle.Render(indentLines(review.FormatFindings(m.findings))) + "\n\n"
	} else {
		s += successStyle.Render("  ✓ No findings") + "\n\n"
	}
	if m.summary != "" {
		s += renderSummary(m.summary) + "\n"
	}
	s += dimStyle.Render("  Press Enter to return to chat") + "\n"
	return s
}

func renderSummary(summary string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "  " + summary
	}
	out, err := r.Render(summary)
	if err != nil {
		return "  " + summary
	}
	return strings.TrimRight(out, "\n")
}

func indentLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
