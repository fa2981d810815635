package refine

import (
	"fmt"

	"rtlforge/internal/oracle"
)

// Decision is a policy's ruling on one evaluated candidate.
type Decision struct {
	Accept bool
	Done   bool
	Reason string
}

// Baseline is a policy's ruling on the starting artifact before any round runs.
type Baseline struct {
	// Done means the starting artifact already satisfies the goal; the loop
	// exits without invoking the LLM.
	Done bool
	// Proceed false aborts the loop: the starting artifact is not a valid
	// base for this refinement task (for example a failing simulation in
	// coverage mode, where correctness must be preserved, not established).
	Proceed bool
	Reason  string
}

// AcceptPolicy decides whether an evaluated candidate replaces the committed
// artifact. Judge must not mutate policy state; the engine calls Commit only
// after an acceptance.
type AcceptPolicy interface {
	Init(v oracle.Verdict) Baseline
	Judge(v oracle.Verdict) Decision
	Commit(v oracle.Verdict)
}

// MismatchPolicy tracks simulation mismatch count. An edit is accepted when
// syntax passes and the count did not increase; equal counts are accepted.
// A zero count with a failed simulation is a degenerate state and is
// rejected: the zero is not evidence of correctness.
type MismatchPolicy struct {
	last    int
	hasLast bool
}

// NewMismatchPolicy creates a policy with no recorded baseline.
func NewMismatchPolicy() *MismatchPolicy {
	return &MismatchPolicy{}
}

func (p *MismatchPolicy) Init(v oracle.Verdict) Baseline {
	p.last = v.Mismatches
	p.hasLast = true
	return Baseline{
		Done:    v.SyntaxPass && v.SimPass && v.Mismatches == 0,
		Proceed: true,
	}
}

func (p *MismatchPolicy) Judge(v oracle.Verdict) Decision {
	if !v.SyntaxPass {
		return Decision{Reason: "syntax check failed"}
	}
	if p.hasLast && v.Mismatches > p.last {
		return Decision{Reason: fmt.Sprintf("mismatch count increased: %d > %d", v.Mismatches, p.last)}
	}
	if v.Mismatches == 0 && !v.SimPass {
		return Decision{Reason: "mismatch count is 0 but simulation failed"}
	}
	return Decision{Accept: true, Done: v.Mismatches == 0}
}

func (p *MismatchPolicy) Commit(v oracle.Verdict) {
	p.last = v.Mismatches
	p.hasLast = true
}

// coverageTolerance absorbs float noise when comparing against 100%.
const coverageTolerance = 0.001

// CoveragePolicy tracks line and branch coverage. An edit is accepted only
// when the simulation still passes and neither dimension regressed; the loop
// is done when both dimensions reach 100%.
type CoveragePolicy struct {
	lastLine   float64
	lastBranch float64
	hasLast    bool
}

// NewCoveragePolicy creates a policy with no recorded baseline.
func NewCoveragePolicy() *CoveragePolicy {
	return &CoveragePolicy{}
}

func coverageAtTarget(line, branch float64) bool {
	return line > 100.0-coverageTolerance && branch > 100.0-coverageTolerance
}

func (p *CoveragePolicy) Init(v oracle.Verdict) Baseline {
	p.lastLine = v.LineCoverage
	p.lastBranch = v.BranchCoverage
	p.hasLast = true

	if !v.SyntaxPass {
		return Baseline{Proceed: false, Reason: "starting artifact fails syntax check"}
	}
	if !v.SimPass {
		return Baseline{Proceed: false, Reason: "starting artifact fails simulation"}
	}
	if coverageAtTarget(v.LineCoverage, v.BranchCoverage) {
		return Baseline{Done: true, Proceed: true}
	}
	return Baseline{Proceed: true}
}

func (p *CoveragePolicy) Judge(v oracle.Verdict) Decision {
	if !v.SyntaxPass {
		return Decision{Reason: "syntax check failed"}
	}
	if !v.SimPass {
		return Decision{Reason: "simulation failed"}
	}
	if p.hasLast && (v.LineCoverage < p.lastLine || v.BranchCoverage < p.lastBranch) {
		return Decision{Reason: fmt.Sprintf(
			"not both line and branch coverage improved: line %.2f%% (was %.2f%%), branch %.2f%% (was %.2f%%)",
			v.LineCoverage, p.lastLine, v.BranchCoverage, p.lastBranch)}
	}
	return Decision{
		Accept: true,
		Done:   coverageAtTarget(v.LineCoverage, v.BranchCoverage),
	}
}

func (p *CoveragePolicy) Commit(v oracle.Verdict) {
	p.lastLine = v.LineCoverage
	p.lastBranch = v.BranchCoverage
	p.hasLast = true
}
