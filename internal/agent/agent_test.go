package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rtlforge/internal/bench"
	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
	"rtlforge/internal/store"
)

// scriptedClient serves canned responses in order; the last one repeats.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Chat(_ context.Context, _ []llm.Message, _ int) (*llm.Response, error) {
	if len(c.responses) == 0 {
		return nil, fmt.Errorf("no scripted responses")
	}
	i := c.calls
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	c.calls++
	return &llm.Response{Content: c.responses[i], Usage: llm.Usage{TotalTokens: 1}}, nil
}

// fakeReviewer serves verdicts in order; the last one repeats. A non-nil
// evalErr simulates a tool failure on every evaluation.
type fakeReviewer struct {
	verdicts []oracle.Verdict
	evalErr  error
	calls    int
}

func (r *fakeReviewer) CheckSyntax(context.Context, ...string) (bool, string, error) {
	return true, "", nil
}

func (r *fakeReviewer) Evaluate(context.Context) (oracle.Verdict, error) {
	if r.evalErr != nil {
		return oracle.Verdict{}, r.evalErr
	}
	i := r.calls
	if i >= len(r.verdicts) {
		i = len(r.verdicts) - 1
	}
	r.calls++
	return r.verdicts[i], nil
}

const (
	tbResponse       = `{"reasoning": "r", "interface": "module top(input logic a);", "testbench": "module tb; endmodule"}`
	typeResponse     = `{"reasoning": "no clock", "classification": "CMB"}`
	scenarioResponse = `{"reasoning": "r", "testbench_scenarios": [{"scenario": "basic", "description": "drive inputs"}]}`
	rtlResponse      = `{"reasoning": "r", "module": "module top;\nassign y = a;\nendmodule"}`
)

func newAgent(t *testing.T, client llm.Client, reviewer Reviewer) *TopAgent {
	t.Helper()
	return &TopAgent{
		Client:       client,
		Meter:        llm.NewMeter(),
		MaxTokens:    4096,
		Benchmark:    "verilog_eval",
		OutputDir:    t.TempDir(),
		TestbenchNum: 1,
		RTLNum:       1,
		NewReviewer:  func(string) Reviewer { return reviewer },
	}
}

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestRunTask_CleanPass(t *testing.T) {
	client := &scriptedClient{responses: []string{tbResponse, typeResponse, scenarioResponse, rtlResponse}}
	reviewer := &fakeReviewer{verdicts: []oracle.Verdict{
		{SyntaxPass: true, SimPass: true, Mismatches: 0},
	}}
	a := newAgent(t, client, reviewer)

	outcome, err := a.RunTask(context.Background(), bench.Task{ID: "Prob131", Spec: "adder spec"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !outcome.Passed || outcome.Mismatches != 0 {
		t.Errorf("outcome = %+v", outcome)
	}

	taskDir := filepath.Join(a.OutputDir, "verilog_eval_Prob131")
	if got := readArtifact(t, taskDir, MarkerFile); got != "1" {
		t.Errorf("marker content = %q", got)
	}
	if got := readArtifact(t, taskDir, BestRTLFile); !strings.Contains(got, "assign y = a;") {
		t.Errorf("best RTL = %q", got)
	}
	if got := readArtifact(t, taskDir, ScenariosFile); !strings.Contains(got, "scenario: basic") {
		t.Errorf("scenarios = %q", got)
	}
	if got := readArtifact(t, taskDir, MatrixFile); !strings.Contains(got, `"sim_results"`) {
		t.Errorf("matrix = %q", got)
	}
}

func TestRunTask_RefinesFailingPairing(t *testing.T) {
	editResponse := `{
		"reasoning": "flip the operand",
		"action_input": {
			"command": "replace_content_by_matching",
			"args": {"old_content": "assign y = a;", "new_content": "assign y = b;"}
		}
	}`
	client := &scriptedClient{responses: []string{
		tbResponse, typeResponse, scenarioResponse, rtlResponse, editResponse,
	}}
	failing := oracle.Verdict{SyntaxPass: true, SimPass: false, Mismatches: 2, Diagnostic: "SIMULATION FAILED - 2 MISMATCHES DETECTED, FIRST AT TIME 10"}
	reviewer := &fakeReviewer{verdicts: []oracle.Verdict{
		failing, // matrix cell
		failing, // pre-refinement
		failing, // refinement baseline
		{SyntaxPass: true, SimPass: true, Mismatches: 0}, // after the edit
	}}
	a := newAgent(t, client, reviewer)

	outcome, err := a.RunTask(context.Background(), bench.Task{ID: "Prob134", Spec: "spec"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !outcome.Passed {
		t.Error("refinement should repair the pairing")
	}

	taskDir := filepath.Join(a.OutputDir, "verilog_eval_Prob134")
	if got := readArtifact(t, taskDir, BestRTLFile); !strings.Contains(got, "assign y = b;") {
		t.Errorf("refined RTL not persisted as best: %q", got)
	}
	if _, err := os.Stat(filepath.Join(taskDir, MarkerFile)); err != nil {
		t.Error("marker missing after a completed refinement run")
	}
}

func TestRunTask_GoldenModelReplay(t *testing.T) {
	goldenResponse := "```python\nclass GoldenDUT:\n    def __init__(self):\n        pass\n```"
	client := &scriptedClient{responses: []string{
		tbResponse, typeResponse, scenarioResponse, rtlResponse, goldenResponse,
	}}
	reviewer := &fakeReviewer{verdicts: []oracle.Verdict{
		{SyntaxPass: true, SimPass: true, Mismatches: 0},
	}}
	a := newAgent(t, client, reviewer)
	a.UseGoldenModel = true

	var checkerDir string
	a.RunChecker = func(_ context.Context, dir string) (string, error) {
		checkerDir = dir
		return "[{'y': 1}]", nil
	}

	// The simulation wrote its signal dump before the golden replay runs.
	taskDir := filepath.Join(a.OutputDir, "verilog_eval_Prob131")
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		t.Fatalf("create task dir: %v", err)
	}
	dump := "scenario: basic, a = 1, y = 1\n"
	if err := os.WriteFile(filepath.Join(taskDir, SignalDumpFile), []byte(dump), 0644); err != nil {
		t.Fatalf("write signal dump: %v", err)
	}

	outcome, err := a.RunTask(context.Background(), bench.Task{ID: "Prob131", Spec: "adder spec"})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !outcome.Passed {
		t.Errorf("outcome = %+v", outcome)
	}

	script := readArtifact(t, taskDir, GoldenCheckerFile)
	if !strings.HasPrefix(script, "class GoldenDUT:") {
		t.Errorf("checker script missing the model class: %q", script)
	}
	if !strings.Contains(script, "TBout.txt") {
		t.Error("checker script missing the signal dump replay tail")
	}
	if checkerDir != taskDir {
		t.Errorf("checker ran in %q, want %q", checkerDir, taskDir)
	}
}

func TestRunTask_GoldenModelSkipsWithoutDump(t *testing.T) {
	goldenResponse := "```python\nclass GoldenDUT:\n    pass\n```"
	client := &scriptedClient{responses: []string{
		tbResponse, typeResponse, scenarioResponse, rtlResponse, goldenResponse,
	}}
	reviewer := &fakeReviewer{verdicts: []oracle.Verdict{
		{SyntaxPass: true, SimPass: true, Mismatches: 0},
	}}
	a := newAgent(t, client, reviewer)
	a.UseGoldenModel = true
	a.RunChecker = func(context.Context, string) (string, error) {
		t.Error("checker must not run without a signal dump")
		return "", nil
	}

	if _, err := a.RunTask(context.Background(), bench.Task{ID: "Prob134", Spec: "spec"}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	taskDir := filepath.Join(a.OutputDir, "verilog_eval_Prob134")
	if got := readArtifact(t, taskDir, GoldenCheckerFile); !strings.Contains(got, "GoldenDUT") {
		t.Errorf("checker script must still be persisted: %q", got)
	}
	if got := readArtifact(t, taskDir, MarkerFile); got != "1" {
		t.Errorf("marker content = %q", got)
	}
}

func TestRunTask_ToolFailureLeavesNoMarker(t *testing.T) {
	client := &scriptedClient{responses: []string{tbResponse, typeResponse, scenarioResponse, rtlResponse}}
	reviewer := &fakeReviewer{evalErr: fmt.Errorf("iverilog: executable not found")}
	a := newAgent(t, client, reviewer)

	_, err := a.RunTask(context.Background(), bench.Task{ID: "Prob135", Spec: "spec"})
	if err == nil {
		t.Fatal("a tool failure must abort the task")
	}
	marker := filepath.Join(a.OutputDir, "verilog_eval_Prob135", MarkerFile)
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("marker must not exist after an aborted task")
	}
}

func TestRunBatch_IsolatesTaskFailures(t *testing.T) {
	// One client response satisfies every decode shape in the pipeline.
	universal := `{"reasoning": "r", "interface": "i", "testbench": "t",
		"module": "m", "classification": "CMB",
		"testbench_scenarios": [{"scenario": "s", "description": "d"}]}`
	client := &scriptedClient{responses: []string{universal}}

	failFirst := true
	a := newAgent(t, client, nil)
	a.NewReviewer = func(string) Reviewer {
		if failFirst {
			failFirst = false
			return &fakeReviewer{evalErr: fmt.Errorf("tool failure")}
		}
		return &fakeReviewer{verdicts: []oracle.Verdict{{SyntaxPass: true, SimPass: true, Mismatches: 0}}}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	defer st.Close()
	a.Store = st
	a.RunID = "batch-1"

	tasks := []bench.Task{
		{ID: "Prob131", Spec: "a"},
		{ID: "Prob134", Spec: "b"},
	}
	result, err := a.RunBatch(context.Background(), tasks)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if result.Total != 2 || result.Passed != 1 || result.Failed != 1 {
		t.Errorf("result = %+v", result)
	}

	summary := readArtifact(t, a.OutputDir, "summary_batch-1.txt")
	if !strings.Contains(summary, "Task: Prob131, Error:") {
		t.Errorf("summary missing failure line:\n%s", summary)
	}
	if !strings.Contains(summary, "Task: Prob134, Passed: true") {
		t.Errorf("summary missing pass line:\n%s", summary)
	}
	if !strings.Contains(summary, "Total Tasks: 2") {
		t.Errorf("summary missing statistics:\n%s", summary)
	}

	recorded, err := st.TaskResults("batch-1")
	if err != nil {
		t.Fatalf("TaskResults failed: %v", err)
	}
	if len(recorded) != 2 {
		t.Errorf("store rows = %d, want 2", len(recorded))
	}
}
