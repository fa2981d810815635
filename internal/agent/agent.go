// Package agent orchestrates the full per-task pipeline: testbench and RTL
// candidate generation, matrix selection, mismatch refinement, and the batch
// runner with per-task failure isolation.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"rtlforge/internal/bench"
	"rtlforge/internal/gen"
	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
	"rtlforge/internal/refine"
	"rtlforge/internal/selector"
	"rtlforge/internal/sim"
	"rtlforge/internal/store"
)

// Per-task artifact names.
const (
	MarkerFile        = "properly_finished.tag"
	MatrixFile        = "sim_matrix.json"
	BestRTLFile       = "rtl_best.sv"
	InterfaceFile     = "if.sv"
	ScenariosFile     = "tb_scenarios.txt"
	GoldenCheckerFile = "golden_check.py"
	// SignalDumpFile is the signal trace the testbenches write during
	// simulation; the golden model checker replays it.
	SignalDumpFile = "TBout.txt"
)

// Reviewer is the oracle surface a task needs: full pair evaluation plus the
// standalone syntax check used to screen RTL candidates.
type Reviewer interface {
	oracle.Evaluator
	CheckSyntax(ctx context.Context, files ...string) (bool, string, error)
}

// TopAgent runs benchmark tasks end to end.
type TopAgent struct {
	Client    llm.Client
	Meter     *llm.Meter
	MaxTokens int

	// Benchmark names the dataset; per-task dirs are <Benchmark>_<taskID>.
	Benchmark    string
	OutputDir    string
	TestbenchNum int
	RTLNum       int
	UseGoldenTB  bool
	// UseGoldenModel generates a Python behavioral model per task and
	// replays the simulation's signal dump through it.
	UseGoldenModel bool

	Store *store.Store
	RunID string

	// NewReviewer builds the oracle for a task workspace. Defaults to the
	// Icarus Verilog reviewer.
	NewReviewer func(dir string) Reviewer

	// RunChecker runs the golden model checker script inside a task
	// workspace and returns its output. Defaults to python3.
	RunChecker func(ctx context.Context, dir string) (string, error)
}

func (a *TopAgent) reviewer(dir string) Reviewer {
	if a.NewReviewer != nil {
		return a.NewReviewer(dir)
	}
	return oracle.NewSimReviewer(dir)
}

// TaskOutcome is one task's final result.
type TaskOutcome struct {
	TaskID     string
	Passed     bool
	Mismatches int
	BestRTL    string
}

func writeArtifact(dir, name, content string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// RunTask executes the pipeline for one task. An error means the task
// aborted (LLM failure, tool failure, unusable candidates); the batch runner
// records it and moves on. The completion marker is written only when the
// task ran to the end.
func (a *TopAgent) RunTask(ctx context.Context, task bench.Task) (*TaskOutcome, error) {
	taskDir := filepath.Join(a.OutputDir, a.Benchmark+"_"+task.ID)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return nil, fmt.Errorf("create task dir: %w", err)
	}
	os.Remove(filepath.Join(taskDir, MarkerFile))

	a.Meter.Reset()
	reviewer := a.reviewer(taskDir)

	// Testbench candidates. The IO interface settles with the first
	// generation and is shared by every RTL candidate.
	tbGen := gen.NewTBGenerator(a.Client, a.Meter, a.MaxTokens)
	if a.UseGoldenTB && task.GoldenTBPath != "" {
		golden, err := os.ReadFile(task.GoldenTBPath)
		if err != nil {
			return nil, fmt.Errorf("read golden testbench: %w", err)
		}
		tbGen.GoldenTestbench = string(golden)
	} else {
		log.Printf("%s: no golden testbench provided", task.ID)
	}

	var testbenches []string
	var iface string
	for i := 0; i < a.TestbenchNum; i++ {
		log.Printf("%s: generating testbench %d", task.ID, i)
		out, err := tbGen.Generate(ctx, task.Spec)
		if err != nil {
			return nil, err
		}
		if err := writeArtifact(taskDir, fmt.Sprintf("tb_%d.sv", i), out.Testbench); err != nil {
			return nil, err
		}
		testbenches = append(testbenches, out.Testbench)
		iface = out.Interface
	}
	if err := writeArtifact(taskDir, InterfaceFile, iface); err != nil {
		return nil, err
	}

	// Circuit type plus scenario plan, persisted for audit and reused by the
	// testbench display instructions.
	typeReport, err := gen.NewCircuitTypeClassifier(a.Client, a.Meter, a.MaxTokens).Classify(ctx, task.Spec)
	if err != nil {
		return nil, err
	}
	scenarios, err := gen.NewScenarioGenerator(a.Client, a.Meter, a.MaxTokens).Generate(ctx, task.Spec, iface, typeReport.Classification)
	if err != nil {
		return nil, err
	}
	if err := writeArtifact(taskDir, ScenariosFile, scenarios.Render()); err != nil {
		return nil, err
	}

	// RTL candidates. Syntax failures are logged and dropped; they never
	// enter the matrix.
	rtlGen := gen.NewRTLGenerator(a.Client, a.Meter, a.MaxTokens)
	var rtlCodes []string
	for i := 0; i < a.RTLNum; i++ {
		log.Printf("%s: generating RTL %d", task.ID, i)
		out, err := rtlGen.Generate(ctx, task.Spec, iface)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("rtl_%d.sv", i)
		if err := writeArtifact(taskDir, name, out.Module); err != nil {
			return nil, err
		}
		pass, msg, err := reviewer.CheckSyntax(ctx, name)
		if err != nil {
			return nil, err
		}
		if !pass {
			log.Printf("%s: RTL %d syntax check failed: %s", task.ID, i, strings.TrimSpace(msg))
			continue
		}
		rtlCodes = append(rtlCodes, out.Module)
	}
	if len(rtlCodes) == 0 {
		return nil, fmt.Errorf("%s: no RTL candidate passed the syntax check", task.ID)
	}

	// Matrix selection over all surviving pairings.
	matrix, err := selector.SelectBest(ctx, &selector.WorkspaceEvaluator{Dir: taskDir, Evaluator: reviewer}, rtlCodes, testbenches)
	if err != nil {
		return nil, err
	}
	if err := matrix.WriteMatrix(filepath.Join(taskDir, MatrixFile)); err != nil {
		return nil, err
	}

	bestRTL := rtlCodes[matrix.BestRTL]
	bestTB := testbenches[matrix.BestTB]
	outcome := &TaskOutcome{
		TaskID:     task.ID,
		Passed:     matrix.Pass(),
		Mismatches: matrix.MinMismatch,
		BestRTL:    bestRTL,
	}

	// Refine the best pairing when it still mismatches.
	if !matrix.Pass() {
		refined, err := a.refineBest(ctx, task, taskDir, reviewer, bestRTL, bestTB)
		if err != nil {
			return nil, err
		}
		outcome.Passed = refined.Passed
		outcome.Mismatches = refined.Final.Mismatches
		outcome.BestRTL = refined.Artifact
	}

	if err := writeArtifact(taskDir, BestRTLFile, outcome.BestRTL); err != nil {
		return nil, err
	}

	if a.UseGoldenModel {
		if err := a.goldenCheck(ctx, task, taskDir, iface); err != nil {
			return nil, err
		}
	}

	a.Meter.LogStats()
	if sl, ok := a.Client.(interface{ LogStats() }); ok {
		sl.LogStats()
	}
	if a.Store != nil {
		if err := a.Store.RecordMeter(a.RunID, task.ID, a.Meter); err != nil {
			return nil, err
		}
	}
	if err := writeArtifact(taskDir, MarkerFile, "1"); err != nil {
		return nil, err
	}
	return outcome, nil
}

// goldenCheck generates the Python behavioral model for the task and replays
// the testbench's signal dump through it. The replay verdict is advisory: a
// missing or unusable dump and checker tool failures are logged, not fatal.
// Only a failed model generation aborts the task.
func (a *TopAgent) goldenCheck(ctx context.Context, task bench.Task, taskDir, iface string) error {
	script, err := gen.NewGoldenModelGenerator(a.Client, a.Meter, a.MaxTokens).Generate(ctx, task.Spec, iface)
	if err != nil {
		return err
	}
	if err := writeArtifact(taskDir, GoldenCheckerFile, script); err != nil {
		return err
	}

	dump, err := os.ReadFile(filepath.Join(taskDir, SignalDumpFile))
	if err != nil {
		log.Printf("%s: no signal dump, golden model replay skipped", task.ID)
		return nil
	}
	records, err := sim.ParseSignalDump(string(dump))
	if err != nil {
		log.Printf("%s: signal dump unusable, golden model replay skipped: %v", task.ID, err)
		return nil
	}
	if len(records) == 0 {
		log.Printf("%s: signal dump empty, golden model replay skipped", task.ID)
		return nil
	}

	out, err := a.runChecker(ctx, taskDir)
	if err != nil {
		log.Printf("%s: golden model replay failed: %v", task.ID, err)
		return nil
	}
	log.Printf("%s: golden model replayed %d records: %s", task.ID, len(records), strings.TrimSpace(out))
	return nil
}

func (a *TopAgent) runChecker(ctx context.Context, dir string) (string, error) {
	if a.RunChecker != nil {
		return a.RunChecker(ctx, dir)
	}
	res, err := sim.NewRunner(dir).Run(ctx, "python3", GoldenCheckerFile)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("checker exited %d: %s", res.ExitCode, res.Stderr)
	}
	return res.Stdout + res.Stderr, nil
}

// refineBest stages the selected pairing into the workspace and runs the
// mismatch refinement session on the RTL side.
func (a *TopAgent) refineBest(ctx context.Context, task bench.Task, taskDir string, reviewer Reviewer, bestRTL, bestTB string) (*refine.Outcome, error) {
	if err := writeArtifact(taskDir, oracle.RTLFile, bestRTL); err != nil {
		return nil, err
	}
	if err := writeArtifact(taskDir, oracle.TestbenchFile, bestTB); err != nil {
		return nil, err
	}

	verdict, err := reviewer.Evaluate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: pre-refinement evaluation: %w", task.ID, err)
	}

	loop := gen.NewRTLMismatchEditor(a.Client, a.Meter, a.MaxTokens,
		task.Spec, bestTB, verdict.Diagnostic,
		refine.FileWorkspace{Path: filepath.Join(taskDir, oracle.RTLFile)}, reviewer)
	return loop.Run(ctx)
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Total  int
	Passed int
	Failed int
}

// RunBatch executes every task, isolating per-task failures, and appends the
// sorted summary to summary_<runID>.txt in the output dir.
func (a *TopAgent) RunBatch(ctx context.Context, tasks []bench.Task) (*BatchResult, error) {
	if a.RunID == "" {
		a.RunID = uuid.NewString()
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if a.Store != nil {
		if err := a.Store.CreateRun(a.RunID, a.Benchmark, ""); err != nil {
			return nil, err
		}
	}

	var summary []string
	result := &BatchResult{Total: len(tasks)}

	for _, task := range tasks {
		outcome, err := a.RunTask(ctx, task)
		if err != nil {
			log.Printf("task %s failed: %v", task.ID, err)
			result.Failed++
			summary = append(summary, fmt.Sprintf("Task: %s, Error: %v\n", task.ID, err))
			if a.Store != nil {
				if serr := a.Store.RecordTask(a.RunID, store.TaskResult{
					TaskID: task.ID, Mismatches: oracle.WorstMismatch, ErrorMsg: err.Error(),
				}); serr != nil {
					return nil, serr
				}
			}
			continue
		}
		if outcome.Passed {
			result.Passed++
		}
		summary = append(summary, fmt.Sprintf("Task: %s, Passed: %v, Mismatch: %d\n", outcome.TaskID, outcome.Passed, outcome.Mismatches))
		if a.Store != nil {
			if err := a.Store.RecordTask(a.RunID, store.TaskResult{
				TaskID: outcome.TaskID, Passed: outcome.Passed, Mismatches: outcome.Mismatches,
			}); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(summary)
	summary = append(summary,
		"\nStatistics:\n",
		fmt.Sprintf("Total Tasks: %d\n", result.Total),
		fmt.Sprintf("Passed Tasks: %d\n", result.Passed),
		fmt.Sprintf("Failed Tasks: %d\n", result.Failed),
	)
	if err := appendSummary(filepath.Join(a.OutputDir, "summary_"+a.RunID+".txt"), summary); err != nil {
		return nil, err
	}

	if a.Store != nil {
		if err := a.Store.CompleteRun(a.RunID, "finished"); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func appendSummary(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open summary: %w", err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}
