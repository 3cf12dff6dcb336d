// Package review implements the autonomous code-review loop: a planner picks
// the next file, an executor reviews it, and a summary writer synthesizes the
// accumulated findings. Every LLM failure has a deterministic fallback; the
// loop itself never returns an error.
package review

import (
	"strings"
)

// Severity classifies a finding.
type Severity string

const (
	SeveritySuggestion Severity = "suggestion"
	SeverityWarning    Severity = "warning"
	SeverityError      Severity = "error"
)

// NormalizeSeverity clamps an arbitrary string to the severity enum,
// defaulting to suggestion.
func NormalizeSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityWarning:
		return SeverityWarning
	case SeverityError:
		return SeverityError
	default:
		return SeveritySuggestion
	}
}

// Finding is one reported issue from reviewing a file. Message is always
// non-empty; normalization drops findings without one.
type Finding struct {
	File     string   `json:"file"`
	Line     *int     `json:"line,omitempty"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Outcome is the immutable result of reviewing one file (or of writing the
// final summary). ReviewedPath is empty for outcomes that did not consume a
// candidate, such as the summary.
type Outcome struct {
	Findings     []Finding
	Observation  string
	ReviewedPath string
}
