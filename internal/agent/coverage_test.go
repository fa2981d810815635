package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rtlforge/internal/bench"
	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
)

func TestCoverageAgent_RefinesTestbench(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "Prob131_ref.sv")
	if err := os.WriteFile(refPath, []byte("module top;\nassign y = a;\nendmodule"), 0644); err != nil {
		t.Fatalf("write golden ref: %v", err)
	}

	editResponse := `{
		"reasoning": "add a stimulus for the carry path",
		"action_input": {
			"command": "replace_content_by_matching",
			"args": {"old_content": "module tb; endmodule", "new_content": "module tb; initial a = 1; endmodule"}
		}
	}`
	client := &scriptedClient{responses: []string{tbResponse, editResponse}}
	reviewer := &fakeReviewer{verdicts: []oracle.Verdict{
		{SyntaxPass: true, SimPass: true, LineCoverage: 80, BranchCoverage: 75}, // agent baseline
		{SyntaxPass: true, SimPass: true, LineCoverage: 80, BranchCoverage: 75}, // loop baseline
		{SyntaxPass: true, SimPass: true, LineCoverage: 100, BranchCoverage: 100},
	}}

	a := &CoverageAgent{
		Client:      client,
		Meter:       llm.NewMeter(),
		MaxTokens:   4096,
		OutputDir:   t.TempDir(),
		RunID:       "cov-1",
		NewReviewer: func(string) oracle.Evaluator { return reviewer },
	}

	tasks := []bench.Task{
		{ID: "Prob131", Spec: "adder spec", GoldenRefPath: refPath},
		{ID: "Prob134", Spec: "no ref, skipped"},
	}
	if err := a.Run(context.Background(), tasks); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	taskDir := filepath.Join(a.OutputDir, "Prob131")
	if got := readArtifact(t, taskDir, BestTBFile); !strings.Contains(got, "initial a = 1;") {
		t.Errorf("refined testbench not persisted: %q", got)
	}

	summary := readArtifact(t, a.OutputDir, "summary_coverage_cov-1.txt")
	if !strings.Contains(summary, "Task: Prob131, Line: 100.00%, Branch: 100.00%") {
		t.Errorf("summary missing coverage line:\n%s", summary)
	}
	if strings.Contains(summary, "Prob134") {
		t.Errorf("task without golden ref must be skipped:\n%s", summary)
	}
}
