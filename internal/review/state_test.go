package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState([]string{"a.go"}, "security")
	assert.Equal(t, []string{"a.go"}, s.RequestPaths)
	assert.Equal(t, "security", s.Focus)
	assert.Zero(t, s.Iteration)
	assert.Empty(t, s.ReviewedPaths)
}

func TestAppendDoesNotMutateOriginal(t *testing.T) {
	s1 := NewState([]string{"a.go", "b.go"}, "focus")
	s2 := s1.Append(Outcome{
		ReviewedPath: "a.go",
		Observation:  "looks fine",
		Findings:     []Finding{{File: "a.go", Message: "m", Severity: SeveritySuggestion}},
	})

	assert.Empty(t, s1.ReviewedPaths)
	assert.Empty(t, s1.Findings)
	assert.Zero(t, s1.Iteration)

	assert.Equal(t, []string{"a.go"}, s2.ReviewedPaths)
	assert.Len(t, s2.Findings, 1)
	assert.Equal(t, 1, s2.Iteration)
	assert.Equal(t, []string{"looks fine"}, s2.Observations)

	// Mutating the successor's slices must not reach back either.
	s2.ReviewedPaths[0] = "mutated"
	s3 := s2.Append(Outcome{ReviewedPath: "b.go"})
	assert.Equal(t, "mutated", s2.ReviewedPaths[0])
	require.Len(t, s3.ReviewedPaths, 2)
}

func TestAppendIterationAlwaysAdvances(t *testing.T) {
	s := NewState(nil, "")
	s = s.Append(Outcome{})
	s = s.Append(Outcome{})
	assert.Equal(t, 2, s.Iteration)
	assert.Empty(t, s.Observations, "empty observations are not recorded")
}

func TestAppendDeduplicatesReviewedPath(t *testing.T) {
	s := NewState(nil, "")
	s = s.Append(Outcome{ReviewedPath: "a.go"})
	s = s.Append(Outcome{ReviewedPath: "a.go"})
	assert.Equal(t, []string{"a.go"}, s.ReviewedPaths)
	assert.Equal(t, 2, s.Iteration)
}

func TestAppendAccumulatesFindings(t *testing.T) {
	s := NewState(nil, "")
	s = s.Append(Outcome{Findings: []Finding{{Message: "one"}}})
	s = s.Append(Outcome{Findings: []Finding{{Message: "two"}, {Message: "three"}}})
	require.Len(t, s.Findings, 3)
	assert.Equal(t, "one", s.Findings[0].Message)
	assert.Equal(t, "three", s.Findings[2].Message)
}

func TestRemainingCandidates(t *testing.T) {
	s := NewState(nil, "")
	candidates := []string{"a.go", "b.go", "c.go"}

	assert.Equal(t, candidates, s.RemainingCandidates(candidates))

	s = s.Append(Outcome{ReviewedPath: "b.go"})
	assert.Equal(t, []string{"a.go", "c.go"}, s.RemainingCandidates(candidates))

	s = s.Append(Outcome{ReviewedPath: "a.go"})
	s = s.Append(Outcome{ReviewedPath: "c.go"})
	assert.Empty(t, s.RemainingCandidates(candidates))
}

func TestReviewed(t *testing.T) {
	s := NewState(nil, "").Append(Outcome{ReviewedPath: "a.go"})
	assert.True(t, s.Reviewed("a.go"))
	assert.False(t, s.Reviewed("b.go"))
}
