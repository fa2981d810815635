package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rtlforge/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskResultsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateRun("run-1", "verilog-eval", "Prob13.*"); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	want := []TaskResult{
		{TaskID: "Prob131", Passed: true, Mismatches: 0},
		{TaskID: "Prob134", Passed: false, Mismatches: 3, ErrorMsg: "simulation failed"},
	}
	for _, r := range want {
		if err := s.RecordTask("run-1", r); err != nil {
			t.Fatalf("RecordTask failed: %v", err)
		}
	}
	if err := s.CompleteRun("run-1", "finished"); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, err := s.TaskResults("run-1")
	if err != nil {
		t.Fatalf("TaskResults failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordMeterAndTotalUsage(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateRun("run-1", "verilog-eval", ""); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	meter := llm.NewMeter()
	meter.SetTag("tb_generator")
	meter.Add(llm.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150})
	meter.SetTag("rtl_generator")
	meter.Add(llm.Usage{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280})
	meter.Add(llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})

	if err := s.RecordMeter("run-1", "Prob131", meter); err != nil {
		t.Fatalf("RecordMeter failed: %v", err)
	}

	total, err := s.TotalUsage("run-1")
	if err != nil {
		t.Fatalf("TotalUsage failed: %v", err)
	}
	want := llm.Usage{PromptTokens: 310, CompletionTokens: 135, TotalTokens: 445}
	if total != want {
		t.Errorf("total = %+v, want %+v", total, want)
	}
}

func TestAmbiguityStats(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateRun("run-1", "verilog-eval", ""); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	// Three specs: one clean, one ambiguous and fixed, one ambiguous that
	// exhausted its fix budget (still counts as fixed by the entered rule).
	records := []struct {
		task     string
		label    string
		fixIters int
	}{
		{"Prob131", "unambiguous", 0},
		{"Prob134", "ambiguous", 1},
		{"Prob135", "ambiguous", 5},
	}
	for _, r := range records {
		if err := s.RecordAmbiguity("run-1", r.task, r.label, r.fixIters); err != nil {
			t.Fatalf("RecordAmbiguity failed: %v", err)
		}
	}

	st, err := s.GetAmbiguityStats("run-1")
	if err != nil {
		t.Fatalf("GetAmbiguityStats failed: %v", err)
	}
	if st.Total != 3 || st.Ambiguous != 2 || st.Fixed != 2 {
		t.Errorf("stats = %+v, want total=3 ambiguous=2 fixed=2", st)
	}
}
