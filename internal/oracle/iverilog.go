package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rtlforge/internal/sim"
)

// Default artifact names inside an evaluation workspace. The refinement loop
// and the matrix selector write candidates under these names before invoking
// the evaluator.
const (
	RTLFile       = "rtl.sv"
	TestbenchFile = "tb.sv"
	SimBinary     = "sim.out"
)

// SimReviewer evaluates an RTL/testbench pair with Icarus Verilog: compile
// for the syntax verdict, then run the simulation and parse the mismatch
// count from the testbench's verdict line.
type SimReviewer struct {
	dir    string
	runner *sim.Runner

	// GoldenBlackbox optionally names a pre-compiled reference module source
	// added to the compile file list.
	GoldenBlackbox string
}

// NewSimReviewer creates a reviewer over the given workspace directory.
func NewSimReviewer(dir string) *SimReviewer {
	return &SimReviewer{
		dir:    dir,
		runner: sim.NewRunner(dir),
	}
}

// CheckSyntax compiles the given sources without generating a simulation
// binary. Returns the pass flag and the compiler message on failure.
func (r *SimReviewer) CheckSyntax(ctx context.Context, files ...string) (bool, string, error) {
	args := append([]string{"-g2012", "-t", "null"}, files...)
	res, err := r.runner.Run(ctx, "iverilog", args...)
	if err != nil {
		return false, "", fmt.Errorf("syntax check: %w", err)
	}
	if res.ExitCode != 0 {
		return false, res.Stderr + res.Stdout, nil
	}
	return true, "", nil
}

// Evaluate runs the two-step check: syntax first, then behavioral simulation.
// On syntax failure the verdict carries the worst-possible mismatch sentinel
// and simulation is skipped.
func (r *SimReviewer) Evaluate(ctx context.Context) (Verdict, error) {
	files := []string{TestbenchFile, RTLFile}
	if r.GoldenBlackbox != "" {
		files = append(files, r.GoldenBlackbox)
	}

	syntaxPass, syntaxMsg, err := r.CheckSyntax(ctx, files...)
	if err != nil {
		return Verdict{}, err
	}
	if !syntaxPass {
		return Verdict{
			SyntaxPass: false,
			SimPass:    false,
			Mismatches: WorstMismatch,
			Diagnostic: syntaxMsg,
		}, nil
	}

	args := append([]string{"-g2012", "-o", SimBinary}, files...)
	res, err := r.runner.Run(ctx, "iverilog", args...)
	if err != nil {
		return Verdict{}, fmt.Errorf("compile: %w", err)
	}
	if res.ExitCode != 0 {
		// Elaboration can fail even when per-file syntax passed.
		return Verdict{
			SyntaxPass: false,
			SimPass:    false,
			Mismatches: WorstMismatch,
			Diagnostic: res.Stderr + res.Stdout,
		}, nil
	}
	defer os.Remove(filepath.Join(r.dir, SimBinary))

	simRes, err := r.runner.Run(ctx, "vvp", SimBinary)
	if err != nil {
		return Verdict{}, fmt.Errorf("simulation: %w", err)
	}

	simLog := simRes.Stdout + simRes.Stderr
	pass, mismatches, parseErr := sim.ParseSimVerdict(simLog)
	if parseErr != nil {
		// The testbench never reached its verdict line; treat as a failing
		// simulation with the full log as diagnostic.
		return Verdict{
			SyntaxPass: true,
			SimPass:    false,
			Mismatches: WorstMismatch,
			Diagnostic: simLog,
		}, nil
	}

	v := Verdict{
		SyntaxPass: true,
		SimPass:    pass,
		Mismatches: mismatches,
	}
	if !pass {
		v.Diagnostic = simLog
	}
	return v, nil
}

// CoverageReviewer evaluates how thoroughly the workspace testbench exercises
// the RTL, producing line and branch coverage percentages. The coverage tool
// invocation is configurable; it must print a report containing
// "Line Coverage: <pct>%" and "Branch Coverage: <pct>%" lines.
type CoverageReviewer struct {
	dir    string
	runner *sim.Runner

	// Command and Args name the coverage tool run inside the workspace.
	Command string
	Args    []string
}

// NewCoverageReviewer creates a coverage reviewer over the workspace.
func NewCoverageReviewer(dir string, command string, args ...string) *CoverageReviewer {
	return &CoverageReviewer{
		dir:     dir,
		runner:  sim.NewRunner(dir),
		Command: command,
		Args:    args,
	}
}

// Evaluate runs syntax check then the coverage flow. On syntax failure both
// coverage dimensions default to the worst value, zero.
func (r *CoverageReviewer) Evaluate(ctx context.Context) (Verdict, error) {
	sr := &SimReviewer{dir: r.dir, runner: r.runner}
	syntaxPass, syntaxMsg, err := sr.CheckSyntax(ctx, TestbenchFile, RTLFile)
	if err != nil {
		return Verdict{}, err
	}
	if !syntaxPass {
		return Verdict{
			SyntaxPass: false,
			SimPass:    false,
			Diagnostic: syntaxMsg,
		}, nil
	}

	res, err := r.runner.Run(ctx, r.Command, r.Args...)
	if err != nil {
		return Verdict{}, fmt.Errorf("coverage run: %w", err)
	}

	report := res.Stdout + res.Stderr
	lineCov, branchCov := sim.ParseCoverage(report)
	v := Verdict{
		SyntaxPass:     true,
		SimPass:        res.ExitCode == 0,
		LineCoverage:   lineCov,
		BranchCoverage: branchCov,
	}
	if res.ExitCode != 0 {
		v.Diagnostic = report
	}
	return v, nil
}
