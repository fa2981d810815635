// Package oracle wraps the external simulator/checker behind a single
// evaluate-to-verdict contract consumed by the refinement loop and the
// matrix selector.
package oracle

import "context"

// WorstMismatch is the sentinel metric assigned when simulation never ran
// (for example after a syntax failure). Any real mismatch count is lower.
const WorstMismatch = 1 << 30

// Verdict is the outcome of evaluating one candidate artifact. A fresh
// Verdict is produced on every call; verdicts are never cached across
// candidate versions.
type Verdict struct {
	SyntaxPass     bool    `json:"is_syntax_pass"`
	SimPass        bool    `json:"is_sim_pass"`
	Mismatches     int     `json:"mismatch_cnt"`
	LineCoverage   float64 `json:"line_coverage"`
	BranchCoverage float64 `json:"branch_coverage"`
	Diagnostic     string  `json:"diagnostic,omitempty"`
}

// Evaluator produces a Verdict for the artifacts currently present in its
// workspace. Implementations must not mutate the candidate. An error return
// means the external tool itself failed (crash, timeout); callers treat that
// as fatal to the current candidate rather than as a failed check.
type Evaluator interface {
	Evaluate(ctx context.Context) (Verdict, error)
}
