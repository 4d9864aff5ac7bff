package judge

import (
	pkgerrors "algohub/pkg/errors"
)

// Verdict is the aggregate classification of one evaluation.
type Verdict struct {
	Accepted    bool
	PassedCount int
	Total       int
	RuntimeSec  float64 // max across passed cases
	MemoryKB    int     // max across passed cases
}

// Aggregate reduces per-test-case results into a single verdict.
// Runtime and memory report the maximum over passed cases only, so a
// timed-out or crashed case cannot skew the accepted figures. Zero
// results for a non-empty request set is a judge fault, not a grading
// outcome, and surfaces as JudgeUnavailable.
func Aggregate(results []Result, totalExpected int) (Verdict, error) {
	if totalExpected > 0 && len(results) == 0 {
		return Verdict{}, pkgerrors.New(pkgerrors.JudgeUnavailable).WithMessage("judge returned no results")
	}

	verdict := Verdict{Total: totalExpected}
	for _, r := range results {
		if !r.Passed() {
			continue
		}
		verdict.PassedCount++
		if r.Time > verdict.RuntimeSec {
			verdict.RuntimeSec = r.Time
		}
		if r.Memory > verdict.MemoryKB {
			verdict.MemoryKB = r.Memory
		}
	}
	verdict.Accepted = verdict.PassedCount == totalExpected
	return verdict, nil
}
