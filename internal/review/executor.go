package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"repolens/internal/llm"
)

var reviewSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"file": {"type": "string"},
					"line": {"type": ["integer", "string", "null"]},
					"rule": {"type": "string"},
					"message": {"type": "string"},
					"severity": {"type": "string"}
				},
				"required": ["message"]
			}
		},
		"observation": {"type": "string"}
	},
	"required": ["findings"]
}`)

const reviewPrompt = `Review the following file. Focus: %s
Planner context: %s

Report concrete issues as findings with a severity of "suggestion", "warning", or "error", plus a one-sentence observation about the file. Do not invent issues; an empty findings list is a valid answer.

File: %s

%s`

// Executor reviews one file's content against a focus.
type Executor struct {
	client llm.Client
	model  string
	log    *slog.Logger
}

// NewExecutor creates an Executor using the given model.
func NewExecutor(client llm.Client, model string, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{client: client, model: model, log: log.With("component", "executor")}
}

// Execute asks the LLM to review content against the run's focus, with the
// planner's reasoning as side context, and returns normalized findings.
// LLM failure yields a zero-finding outcome whose observation records the
// reason; the path still counts as reviewed so the planner moves on.
func (e *Executor) Execute(ctx context.Context, step Step, focus, content, path string) Outcome {
	reasoning := strings.TrimSpace(step.Reasoning)
	if reasoning == "" {
		reasoning = "none"
	}
	doc, err := e.client.Generate(ctx, llm.GenerateRequest{
		Model:  e.model,
		Prompt: fmt.Sprintf(reviewPrompt, focus, reasoning, path, content),
		Schema: reviewSchema,
	})
	if err != nil {
		e.log.Warn("review call failed", "path", path, "error", err)
		return Outcome{
			Observation:  fmt.Sprintf("review of %s failed: %v", path, err),
			ReviewedPath: path,
		}
	}

	var result struct {
		Findings []struct {
			File     string          `json:"file"`
			Line     json.RawMessage `json:"line"`
			Rule     string          `json:"rule"`
			Message  string          `json:"message"`
			Severity string          `json:"severity"`
		} `json:"findings"`
		Observation string `json:"observation"`
	}
	if err := json.Unmarshal(doc, &result); err != nil {
		e.log.Warn("review response malformed", "path", path, "error", err)
		return Outcome{
			Observation:  fmt.Sprintf("review of %s returned malformed output", path),
			ReviewedPath: path,
		}
	}

	var findings []Finding
	for _, raw := range result.Findings {
		message := strings.TrimSpace(raw.Message)
		if message == "" {
			continue
		}
		file := strings.TrimSpace(raw.File)
		if file == "" {
			file = path
		}
		findings = append(findings, Finding{
			File:     file,
			Line:     coerceLine(raw.Line),
			Rule:     strings.TrimSpace(raw.Rule),
			Message:  message,
			Severity: NormalizeSeverity(raw.Severity),
		})
	}

	return Outcome{
		Findings:     findings,
		Observation:  strings.TrimSpace(result.Observation),
		ReviewedPath: path,
	}
}

// coerceLine accepts a JSON number or numeric string and returns the integer
// line, or nil for anything else.
func coerceLine(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		n := int(asFloat)
		return &n
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(asString)); err == nil {
			return &n
		}
	}
	return nil
}
