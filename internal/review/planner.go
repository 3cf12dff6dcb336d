package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"repolens/internal/llm"
)

// StepKind tags a plan step.
type StepKind string

const (
	StepDone       StepKind = "done"
	StepReviewFile StepKind = "review_file"
	StepSummarize  StepKind = "summarize"
)

// Step is the planner's decision for one iteration. Target is only
// meaningful for review_file steps.
type Step struct {
	Kind      StepKind
	Target    string
	Reasoning string
}

// plannerPathLimit caps how many unreviewed paths are shown to the LLM.
const plannerPathLimit = 20

// lastObservations is how many trailing observations the condensed state
// summary carries.
const lastObservations = 3

var planSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"done": {"type": "boolean"},
		"next_action": {"type": "string"},
		"target": {"type": "string"},
		"reasoning": {"type": "string"}
	},
	"required": ["done"]
}`)

const planPrompt = `You are planning an autonomous code review.

Focus: %s

Progress so far:
%s

Files not yet reviewed:
%s

Decide the next step. Set "done" to true when further review would add little value. Otherwise set "next_action" to "review_file" and "target" to one path from the list above, with brief "reasoning".`

// Planner decides which file to review next, or to stop.
type Planner struct {
	client llm.Client
	model  string
	log    *slog.Logger
}

// NewPlanner creates a Planner using the given model.
func NewPlanner(client llm.Client, model string, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{client: client, model: model, log: log.With("component", "planner")}
}

// NextStep returns the next plan step. With no candidates, or every candidate
// already reviewed, it returns done without calling the LLM. On LLM failure
// it falls back to reviewing the first remaining candidate, which keeps the
// loop making forward progress.
func (p *Planner) NextStep(ctx context.Context, state State, candidates []string) Step {
	remaining := state.RemainingCandidates(candidates)
	if len(remaining) == 0 {
		return Step{Kind: StepDone, Reasoning: "no candidates remaining"}
	}

	shown := remaining
	if len(shown) > plannerPathLimit {
		shown = shown[:plannerPathLimit]
	}

	prompt := fmt.Sprintf(planPrompt, state.Focus, summarizeState(state), strings.Join(shown, "\n"))
	doc, err := p.client.Generate(ctx, llm.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Schema: planSchema,
	})
	if err != nil {
		p.log.Warn("plan call failed, falling back", "error", err)
		return Step{Kind: StepReviewFile, Target: remaining[0], Reasoning: "fallback"}
	}

	var plan struct {
		Done       bool   `json:"done"`
		NextAction string `json:"next_action"`
		Target     string `json:"target"`
		Reasoning  string `json:"reasoning"`
	}
	if err := json.Unmarshal(doc, &plan); err != nil {
		p.log.Warn("plan response malformed, falling back", "error", err)
		return Step{Kind: StepReviewFile, Target: remaining[0], Reasoning: "fallback"}
	}

	// done always overrides next_action.
	if plan.Done {
		return Step{Kind: StepDone, Reasoning: plan.Reasoning}
	}
	if plan.NextAction == string(StepSummarize) {
		return Step{Kind: StepSummarize, Reasoning: plan.Reasoning}
	}

	target := strings.TrimSpace(plan.Target)
	if target == "" {
		target = remaining[0]
	}
	return Step{Kind: StepReviewFile, Target: target, Reasoning: plan.Reasoning}
}

// summarizeState condenses the state into counts plus the last few
// observations, to keep the planning prompt small.
func summarizeState(state State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reviewed %d files, %d findings so far.\n", len(state.ReviewedPaths), len(state.Findings))

	obs := state.Observations
	if len(obs) > lastObservations {
		obs = obs[len(obs)-lastObservations:]
	}
	for _, o := range obs {
		fmt.Fprintf(&b, "- %s\n", o)
	}
	return b.String()
}
