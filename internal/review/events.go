package review

// EventType tags a progress event emitted by the agent.
type EventType string

const (
	// EventPlan marks the start of a plan/act iteration.
	EventPlan EventType = "plan"
	// EventReviewDone marks one file's review completing.
	EventReviewDone EventType = "review_done"
	// EventDone marks the run finishing, summary included.
	EventDone EventType = "done"
)

// Event is one progress notification from a review run. The CLI prints them;
// the TUI renders them live.
type Event struct {
	Type      EventType
	RunID     string
	Iteration int
	Path      string
	Findings  int
	Reasoning string
	Summary   string
}

// Sink receives events. A nil sink drops them.
type Sink func(Event)
