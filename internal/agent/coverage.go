package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"rtlforge/internal/bench"
	"rtlforge/internal/gen"
	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
	"rtlforge/internal/refine"
)

// BestTBFile is the coverage-refined testbench artifact.
const BestTBFile = "tb_best.sv"

// CoverageAgent strengthens generated testbenches against a task's golden
// reference RTL until line and branch coverage both reach 100%. Tasks without
// a golden reference are skipped.
type CoverageAgent struct {
	Client    llm.Client
	Meter     *llm.Meter
	MaxTokens int
	OutputDir string

	// CoverageCommand and CoverageArgs name the tool run inside each task
	// workspace to produce the coverage report.
	CoverageCommand string
	CoverageArgs    []string

	RunID string

	// NewReviewer builds the coverage oracle for a task workspace. Defaults
	// to the configured coverage command.
	NewReviewer func(dir string) oracle.Evaluator
}

func (a *CoverageAgent) reviewer(dir string) oracle.Evaluator {
	if a.NewReviewer != nil {
		return a.NewReviewer(dir)
	}
	return oracle.NewCoverageReviewer(dir, a.CoverageCommand, a.CoverageArgs...)
}

// Run processes every task and appends the sorted summary to
// summary_coverage_<runID>.txt.
func (a *CoverageAgent) Run(ctx context.Context, tasks []bench.Task) error {
	if a.RunID == "" {
		a.RunID = uuid.NewString()
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var summary []string
	for _, task := range tasks {
		if task.GoldenRefPath == "" {
			log.Printf("%s: no golden reference, skipping coverage", task.ID)
			continue
		}
		line, branch, err := a.runTask(ctx, task)
		if err != nil {
			log.Printf("coverage run for %s failed: %v", task.ID, err)
			summary = append(summary, fmt.Sprintf("Task: %s, Error: %v\n", task.ID, err))
			continue
		}
		summary = append(summary, fmt.Sprintf("Task: %s, Line: %.2f%%, Branch: %.2f%%\n", task.ID, line, branch))
	}

	sort.Strings(summary)
	return appendSummary(filepath.Join(a.OutputDir, "summary_coverage_"+a.RunID+".txt"), summary)
}

func (a *CoverageAgent) runTask(ctx context.Context, task bench.Task) (float64, float64, error) {
	taskDir := filepath.Join(a.OutputDir, task.ID)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return 0, 0, fmt.Errorf("create task dir: %w", err)
	}

	a.Meter.Reset()

	ref, err := os.ReadFile(task.GoldenRefPath)
	if err != nil {
		return 0, 0, fmt.Errorf("read golden ref: %w", err)
	}
	if err := writeArtifact(taskDir, oracle.RTLFile, string(ref)); err != nil {
		return 0, 0, err
	}

	tbOut, err := gen.NewTBGenerator(a.Client, a.Meter, a.MaxTokens).Generate(ctx, task.Spec)
	if err != nil {
		return 0, 0, err
	}
	if err := writeArtifact(taskDir, oracle.TestbenchFile, tbOut.Testbench); err != nil {
		return 0, 0, err
	}

	reviewer := a.reviewer(taskDir)
	baseline, err := reviewer.Evaluate(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: baseline coverage: %w", task.ID, err)
	}
	report := fmt.Sprintf("Line Coverage: %.2f%%\nBranch Coverage: %.2f%%", baseline.LineCoverage, baseline.BranchCoverage)

	loop := gen.NewTBCoverageEditor(a.Client, a.Meter, a.MaxTokens,
		task.Spec, string(ref), report,
		refine.FileWorkspace{Path: filepath.Join(taskDir, oracle.TestbenchFile)}, reviewer)
	out, err := loop.Run(ctx)
	if err != nil {
		return 0, 0, err
	}

	if err := writeArtifact(taskDir, BestTBFile, out.Artifact); err != nil {
		return 0, 0, err
	}
	a.Meter.LogStats()
	return out.Final.LineCoverage, out.Final.BranchCoverage, nil
}
