package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSignalDump(t *testing.T) {
	text := "scenario: BasicCounting, count = 3, carry = 0\n" +
		"scenario: ResetDuringOperation, count = 0, state = x\n"

	records, err := ParseSignalDump(text)
	if err != nil {
		t.Fatalf("ParseSignalDump failed: %v", err)
	}

	want := []Record{
		{
			Scenario: "BasicCounting",
			Signals: []Signal{
				{Name: "count", Value: "3", Known: true, Int: 3},
				{Name: "carry", Value: "0", Known: true, Int: 0},
			},
		},
		{
			Scenario: "ResetDuringOperation",
			Signals: []Signal{
				{Name: "count", Value: "0", Known: true, Int: 0},
				{Name: "state", Value: "x", Known: false, Int: 0},
			},
		},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSignalDump_UnknownStaysString(t *testing.T) {
	records, err := ParseSignalDump("scenario: Z, out = zz")
	if err != nil {
		t.Fatalf("ParseSignalDump failed: %v", err)
	}
	sig, ok := records[0].Get("out")
	if !ok {
		t.Fatal("signal out missing")
	}
	if sig.Known {
		t.Error("high-impedance value must not decode to an int")
	}
	if sig.Value != "zz" {
		t.Errorf("value = %q", sig.Value)
	}
}

func TestParseSignalDump_SkipsEmptyLines(t *testing.T) {
	records, err := ParseSignalDump("\n\nscenario: A, a = 1\n\n")
	if err != nil {
		t.Fatalf("ParseSignalDump failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestParseSimVerdict_Passed(t *testing.T) {
	pass, mismatches, err := ParseSimVerdict("... output ...\nSIMULATION PASSED\n")
	if err != nil {
		t.Fatalf("ParseSimVerdict failed: %v", err)
	}
	if !pass || mismatches != 0 {
		t.Errorf("pass=%v mismatches=%d", pass, mismatches)
	}
}

func TestParseSimVerdict_Failed(t *testing.T) {
	log := "SIMULATION FAILED - 7 MISMATCHES DETECTED, FIRST AT TIME 25"
	pass, mismatches, err := ParseSimVerdict(log)
	if err != nil {
		t.Fatalf("ParseSimVerdict failed: %v", err)
	}
	if pass {
		t.Error("pass should be false")
	}
	if mismatches != 7 {
		t.Errorf("mismatches = %d, want 7", mismatches)
	}
}

func TestParseSimVerdict_NoVerdictLine(t *testing.T) {
	if _, _, err := ParseSimVerdict("vvp crashed before printing anything"); err == nil {
		t.Error("log without verdict line must not parse")
	}
}

func TestParseSimVerdict_Idempotent(t *testing.T) {
	log := "SIMULATION FAILED - 2 MISMATCHES DETECTED, FIRST AT TIME 10"
	_, first, _ := ParseSimVerdict(log)
	_, second, _ := ParseSimVerdict(log)
	if first != second {
		t.Errorf("verdict changed across identical parses: %d vs %d", first, second)
	}
}

func TestParseCoverage(t *testing.T) {
	report := "Module rtl\n  Line Coverage: 85.71%\n  Branch Coverage: 50.00%\n"
	lineCov, branchCov := ParseCoverage(report)
	if lineCov != 85.71 {
		t.Errorf("line coverage = %v", lineCov)
	}
	if branchCov != 50.00 {
		t.Errorf("branch coverage = %v", branchCov)
	}
}

func TestParseCoverage_MissingDimensionsDefaultZero(t *testing.T) {
	lineCov, branchCov := ParseCoverage("no coverage data here")
	if lineCov != 0 || branchCov != 0 {
		t.Errorf("got line=%v branch=%v, want zeros", lineCov, branchCov)
	}
}
