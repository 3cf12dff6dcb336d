package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type indexingModel struct {
	spinner        spinner.Model
	filesProcessed int
	filesTotal     int
	done           bool
	files          int
	chunks         int
	err            error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return indexingModel{spinner: sp}
}

// indexDoneMsg is sent when the build completes.
type indexDoneMsg struct {
	files  int
	chunks int
	err    error
}

// indexProgressMsg is sent per file during the build.
type indexProgressMsg struct {
	filesProcessed int
	filesTotal     int
}

func runIndex(deps Deps) tea.Cmd {
	return func() tea.Msg {
		onProgress := func(done, total int) {
			if deps.program != nil && deps.program.p != nil {
				deps.program.p.Send(indexProgressMsg{filesProcessed: done, filesTotal: total})
			}
		}

		files, chunks, err := deps.BuildIndex(context.Background(), onProgress)
		return indexDoneMsg{files: files, chunks: chunks, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.files = msg.files
		m.chunks = msg.chunks
		m.err = msg.err
		return m, nil
	case indexProgressMsg:
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View() string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to continue to chat anyway, or ctrl+c to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		s += fmt.Sprintf("  Files: %d\n  Chunks: %d\n", m.files, m.chunks)
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s Embedding files...\n", m.spinner.View())
	if m.filesTotal > 0 {
		s += fmt.Sprintf("  %d / %d files processed\n", m.filesProcessed, m.filesTotal)
	}
	s += "\n"
	s += dimStyle.Render("  This may take a while for large repositories...") + "\n"
	return s
}
