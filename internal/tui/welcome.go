package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type welcomeModel struct {
	status      IndexStatus
	staleReason string
	ready       bool // true once the check has completed
}

// checkIndexMsg is sent after checking the index status.
type checkIndexMsg struct {
	status      IndexStatus
	staleReason string
}

func checkIndex(deps Deps) tea.Cmd {
	return func() tea.Msg {
		status, reason := deps.CheckIndex()
		return checkIndexMsg{status: status, staleReason: reason}
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.staleReason = msg.staleReason
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View() string {
	s := "\n"
	s += titleStyle.Render("  ◆ Repolens") + "\n"
	s += subtitleStyle.Render("  Ask your codebase, review your changes") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case IndexReady:
		s += successStyle.Render("  ✓ Index ready") + "\n"
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting, q to quit") + "\n"
	case IndexMissing:
		s += warnStyle.Render("  ✗ No index found") + "\n"
		s += "\n"
		s += dimStyle.Render("  Press Enter to index the repository, q to quit") + "\n"
	case IndexStale:
		s += warnStyle.Render("  ⚠ Index stale") + "\n"
		s += dimStyle.Render("    "+m.staleReason) + "\n"
		s += "\n"
		s += dimStyle.Render("  Press Enter to re-index, q to quit") + "\n"
	}
	return s
}
