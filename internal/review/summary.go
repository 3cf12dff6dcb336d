package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"repolens/internal/llm"
)

// placeholderSummary is returned when the LLM produces an empty summary.
const placeholderSummary = "Review complete; no summary was produced."

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"}
	},
	"required": ["summary"]
}`)

const summaryPrompt = `Write a short summary of this code review.

Focus: %s

Files reviewed:
%s

Findings:
%s

Summarize the overall state of the reviewed code and the most important findings. Plain prose, a few sentences.`

// SummaryWriter synthesizes accumulated findings into a final summary.
type SummaryWriter struct {
	client llm.Client
	model  string
	log    *slog.Logger
}

// NewSummaryWriter creates a SummaryWriter using the given model.
func NewSummaryWriter(client llm.Client, model string, log *slog.Logger) *SummaryWriter {
	if log == nil {
		log = slog.Default()
	}
	return &SummaryWriter{client: client, model: model, log: log.With("component", "summary")}
}

// Summarize produces the review's closing outcome. With nothing reviewed it
// returns immediately without an LLM call; an LLM failure or empty summary
// degrades to a placeholder.
func (w *SummaryWriter) Summarize(ctx context.Context, state State) Outcome {
	if len(state.ReviewedPaths) == 0 {
		return Outcome{Observation: "nothing was reviewed"}
	}

	prompt := fmt.Sprintf(summaryPrompt,
		state.Focus,
		strings.Join(state.ReviewedPaths, "\n"),
		FormatFindings(state.Findings),
	)
	doc, err := w.client.Generate(ctx, llm.GenerateRequest{
		Model:  w.model,
		Prompt: prompt,
		Schema: summarySchema,
	})
	if err != nil {
		w.log.Warn("summary call failed", "error", err)
		return Outcome{Observation: placeholderSummary}
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(doc, &result); err != nil {
		w.log.Warn("summary response malformed", "error", err)
		return Outcome{Observation: placeholderSummary}
	}

	summary := strings.TrimSpace(result.Summary)
	if summary == "" {
		summary = placeholderSummary
	}
	return Outcome{Observation: summary}
}

// FormatFindings renders findings one per line for prompts and CLI output.
func FormatFindings(findings []Finding) string {
	if len(findings) == 0 {
		return "(no findings)"
	}
	var b strings.Builder
	for _, f := range findings {
		location := f.File
		if f.Line != nil {
			location = fmt.Sprintf("%s:%d", f.File, *f.Line)
		}
		if f.Rule != "" {
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", f.Severity, location, f.Rule, f.Message)
		} else {
			fmt.Fprintf(&b, "[%s] %s: %s\n", f.Severity, location, f.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
