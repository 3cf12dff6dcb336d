// Package tui is the interactive terminal frontend: an index status screen,
// an indexing progress screen, a chat screen backed by retrieved context, and
// a live review screen fed by agent events.
package tui

import (
	"context"

	"repolens/internal/llm"
	"repolens/internal/review"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewChat
	ViewReview
)

// IndexStatus describes the state of the on-disk index at startup.
type IndexStatus int

const (
	IndexMissing IndexStatus = iota
	IndexReady
	IndexStale
)

// programRef is an indirect pointer to the tea.Program so background
// goroutines can send messages. It is set after tea.NewProgram returns but
// before Run.
type programRef struct {
	p *tea.Program
}

// Deps holds the wired application callbacks the TUI drives. The CLI layer
// constructs these over its component graph.
type Deps struct {
	Repo       string
	ChatModel  string
	EmbedModel string

	CheckIndex func() (IndexStatus, string)
	BuildIndex func(ctx context.Context, onProgress func(done, total int)) (files, chunks int, err error)
	Answer     func(ctx context.Context, question string, history []llm.Message) (string, error)
	NewAgent   func(sink review.Sink) *review.Agent

	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	deps   Deps
	width  int
	height int

	welcome  welcomeModel
	indexing indexingModel
	chat     chatModel
	review   reviewModel
	err      error
}

func New(deps Deps) Model {
	return Model{
		state: ViewWelcome,
		deps:  deps,
	}
}

func (m Model) Init() tea.Cmd {
	return checkIndex(m.deps)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewChat {
			var c tea.Cmd
			m.chat, c = m.chat.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state == ViewWelcome {
				return m, tea.Quit
			}
		}

	case startReviewMsg:
		m.state = ViewReview
		m.review = newReviewModel(msg.focus)
		return m, tea.Batch(m.review.spinner.Tick, runReview(m.deps, msg.focus))
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if m.welcome.status == IndexReady {
				m.transitionToChat()
				return m, nil
			}
			m.state = ViewIndexing
			m.indexing = newIndexingModel()
			return m, tea.Batch(m.indexing.spinner.Tick, runIndex(m.deps))
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.done {
			m.transitionToChat()
			return m, nil
		}

	case ViewChat:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd

	case ViewReview:
		m.review, cmd = m.review.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.review.done {
			m.state = ViewChat
			return m, nil
		}
	}

	return m, nil
}

func (m *Model) transitionToChat() {
	m.chat = newChatModel(m.deps)
	m.chat.initViewport(m.width, m.height)
	m.state = ViewChat
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewWelcome:
		return m.welcome.View()
	case ViewIndexing:
		return m.indexing.View()
	case ViewChat:
		return m.chat.View()
	case ViewReview:
		return m.review.View()
	}
	return ""
}

// Run starts the TUI program.
func Run(deps Deps) error {
	ref := &programRef{}
	deps.program = ref
	model := New(deps)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
