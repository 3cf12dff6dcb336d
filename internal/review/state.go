package review

// State is an immutable snapshot of an in-progress review. Every transition
// goes through Append, which returns a fresh value with copied slices, so a
// run's history stays auditable and any intermediate state can be replayed.
type State struct {
	RequestPaths  []string
	Focus         string
	ReviewedPaths []string
	Findings      []Finding
	Iteration     int
	Observations  []string
}

// NewState seeds a review with the caller's requested paths and focus.
func NewState(requestPaths []string, focus string) State {
	return State{
		RequestPaths: copyStrings(requestPaths),
		Focus:        focus,
	}
}

// Append folds an outcome into the state, returning the successor value. The
// iteration counter always advances; the reviewed path is recorded once,
// findings and a non-empty observation accumulate.
func (s State) Append(o Outcome) State {
	next := State{
		RequestPaths:  copyStrings(s.RequestPaths),
		Focus:         s.Focus,
		ReviewedPaths: copyStrings(s.ReviewedPaths),
		Findings:      append(copyFindings(s.Findings), o.Findings...),
		Iteration:     s.Iteration + 1,
		Observations:  copyStrings(s.Observations),
	}
	if o.ReviewedPath != "" && !contains(next.ReviewedPaths, o.ReviewedPath) {
		next.ReviewedPaths = append(next.ReviewedPaths, o.ReviewedPath)
	}
	if o.Observation != "" {
		next.Observations = append(next.Observations, o.Observation)
	}
	return next
}

// RemainingCandidates returns the candidates not yet reviewed, preserving
// candidate order.
func (s State) RemainingCandidates(candidates []string) []string {
	var remaining []string
	for _, c := range candidates {
		if !contains(s.ReviewedPaths, c) {
			remaining = append(remaining, c)
		}
	}
	return remaining
}

// Reviewed reports whether path has already been reviewed.
func (s State) Reviewed(path string) bool {
	return contains(s.ReviewedPaths, path)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyFindings(in []Finding) []Finding {
	if len(in) == 0 {
		return nil
	}
	out := make([]Finding, len(in))
	copy(out, in)
	return out
}
