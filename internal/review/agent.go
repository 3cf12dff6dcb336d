package review

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"repolens/internal/walker"
)

// AgentConfig holds the loop's resolved settings.
type AgentConfig struct {
	// MaxIterations bounds the plan/act loop; the primary liveness guarantee.
	MaxIterations int
	// MaxPaths caps the candidate set.
	MaxPaths int
	// MaxFileBytes skips larger candidate files.
	MaxFileBytes int64
	// DefaultFocus is used when a request carries no focus.
	DefaultFocus string
	// ExcludePatterns filter candidate paths.
	ExcludePatterns []string
	// Extensions a candidate must have (binary files excluded by omission).
	Extensions []string
}

// Request starts a review run. Empty Paths means the agent discovers its own
// candidates from the repository tree.
type Request struct {
	Paths []string
	Focus string
}

// Agent drives the plan → act → observe → replan loop over ReviewState.
type Agent struct {
	root     string
	planner  *Planner
	executor *Executor
	summary  *SummaryWriter
	cfg      AgentConfig
	sink     Sink
	log      *slog.Logger
}

// NewAgent creates an Agent reviewing the repository at root. sink may be nil.
func NewAgent(root string, planner *Planner, executor *Executor, summary *SummaryWriter, cfg AgentConfig, sink Sink, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		root:     root,
		planner:  planner,
		executor: executor,
		summary:  summary,
		cfg:      cfg,
		sink:     sink,
		log:      log.With("component", "agent"),
	}
}

// Run executes the review and returns the final state. It always returns
// within MaxIterations plan/act cycles; with no candidates it summarizes
// immediately. Cancellation is cooperative: ctx is checked between
// iterations and around file reads, returning the state reached so far.
func (a *Agent) Run(ctx context.Context, req Request) State {
	runID := uuid.NewString()
	log := a.log.With("run_id", runID)

	focus := strings.TrimSpace(req.Focus)
	if focus == "" {
		focus = a.cfg.DefaultFocus
	}

	candidates := a.seedCandidates(req.Paths, log)
	state := NewState(req.Paths, focus)
	log.Info("review starting", "candidates", len(candidates), "focus", focus)

	for i := 0; i < a.cfg.MaxIterations; i++ {
		a.emit(Event{Type: EventPlan, RunID: runID, Iteration: i})
		if ctx.Err() != nil {
			log.Info("review cancelled", "iteration", i)
			return state
		}

		step := a.planner.NextStep(ctx, state, candidates)
		switch step.Kind {
		case StepDone, StepSummarize:
			outcome := a.summary.Summarize(ctx, state)
			state = state.Append(outcome)
			a.emit(Event{Type: EventDone, RunID: runID, Iteration: i, Summary: outcome.Observation})
			log.Info("review done", "reviewed", len(state.ReviewedPaths), "findings", len(state.Findings))
			return state

		case StepReviewFile:
			target, ok := resolveTarget(step.Target, candidates)
			if !ok {
				log.Warn("planner target unresolvable", "target", step.Target)
				continue
			}

			if ctx.Err() != nil {
				return state
			}
			content, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(target)))
			if ctx.Err() != nil {
				return state
			}
			if err != nil {
				// Still mark the path reviewed so the planner moves on.
				log.Warn("candidate unreadable", "path", target, "error", err)
				state = state.Append(Outcome{ReviewedPath: target})
				continue
			}

			outcome := a.executor.Execute(ctx, step, state.Focus, string(content), target)
			state = state.Append(outcome)
			a.emit(Event{
				Type:      EventReviewDone,
				RunID:     runID,
				Iteration: i,
				Path:      target,
				Findings:  len(outcome.Findings),
				Reasoning: step.Reasoning,
			})
		}
	}

	// Iterations exhausted: normal termination with a partial state.
	log.Info("iteration cap reached", "reviewed", len(state.ReviewedPaths), "findings", len(state.Findings))
	return state
}

// seedCandidates builds the candidate path list: the caller's paths filtered
// for existence, size, exclusions, and extension, or a bounded repository
// walk when none were supplied. The result is capped at MaxPaths.
func (a *Agent) seedCandidates(requested []string, log *slog.Logger) []string {
	var candidates []string
	if len(requested) > 0 {
		for _, p := range requested {
			rel := filepath.ToSlash(filepath.Clean(p))
			if !a.admissible(rel, log) {
				continue
			}
			candidates = append(candidates, rel)
		}
	} else {
		files, err := walker.List(a.root, walker.Options{
			Extensions:  a.cfg.Extensions,
			Excludes:    a.cfg.ExcludePatterns,
			MaxFileSize: a.cfg.MaxFileBytes,
			MaxFiles:    a.cfg.MaxPaths,
		})
		if err != nil {
			log.Warn("candidate discovery failed", "error", err)
			return nil
		}
		for _, f := range files {
			candidates = append(candidates, f.RelPath)
		}
	}

	if a.cfg.MaxPaths > 0 && len(candidates) > a.cfg.MaxPaths {
		candidates = candidates[:a.cfg.MaxPaths]
	}
	return candidates
}

// admissible filters one explicitly requested path.
func (a *Agent) admissible(rel string, log *slog.Logger) bool {
	if walker.Matches(rel, a.cfg.ExcludePatterns) {
		return false
	}
	if len(a.cfg.Extensions) > 0 {
		ext := strings.TrimPrefix(filepath.Ext(rel), ".")
		found := false
		for _, allowed := range a.cfg.Extensions {
			if ext == strings.TrimPrefix(allowed, ".") {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	info, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(rel)))
	if err != nil {
		log.Warn("requested path missing", "path", rel)
		return false
	}
	if info.IsDir() {
		return false
	}
	if a.cfg.MaxFileBytes > 0 && info.Size() > a.cfg.MaxFileBytes {
		log.Warn("requested path too large", "path", rel, "size", info.Size())
		return false
	}
	return true
}

// resolveTarget maps a planner-returned target onto a candidate path:
// exact match first, then suffix match in either direction (the planner may
// return a partial or differently rooted path), then basename match.
func resolveTarget(target string, candidates []string) (string, bool) {
	target = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(target)), "./")
	if target == "" {
		return "", false
	}

	for _, c := range candidates {
		if c == target {
			return c, true
		}
	}
	for _, c := range candidates {
		if strings.HasSuffix(c, "/"+target) || strings.HasSuffix(target, "/"+c) {
			return c, true
		}
	}
	base := filepath.Base(target)
	for _, c := range candidates {
		if filepath.Base(c) == base {
			return c, true
		}
	}
	return "", false
}

func (a *Agent) emit(e Event) {
	if a.sink != nil {
		a.sink(e)
	}
}
