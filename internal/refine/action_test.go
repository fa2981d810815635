package refine

import (
	"errors"
	"strings"
	"testing"
)

func TestLocalizedReplace_ExactlyOnce(t *testing.T) {
	current := "module test;\n  reg a;\n  reg b;\nendmodule\n"
	action := LocalizedReplace{OldText: "  reg a;\n  reg b;", NewText: "  logic a;"}

	got, err := action.Apply(current)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := "module test;\n  logic a;\nendmodule\n"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestLocalizedReplace_ZeroOccurrences(t *testing.T) {
	current := "module test;\nendmodule\n"
	action := LocalizedReplace{OldText: "reg missing;", NewText: "logic a;"}

	_, err := action.Apply(current)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestLocalizedReplace_ThreeOccurrences(t *testing.T) {
	current := strings.Repeat("  assign y = a;\n", 3)
	action := LocalizedReplace{OldText: "assign y = a;", NewText: "assign y = b;"}

	_, err := action.Apply(current)
	if !errors.Is(err, ErrMultipleMatch) {
		t.Errorf("err = %v, want ErrMultipleMatch", err)
	}
}

func TestLocalizedReplace_TabExpansion(t *testing.T) {
	// The file uses tabs, the proposed old text uses four spaces; both sides
	// are normalized before matching.
	current := "module t;\n\treg a;\nendmodule\n"
	action := LocalizedReplace{OldText: "    reg a;", NewText: "    logic a;"}

	got, err := action.Apply(current)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !strings.Contains(got, "logic a;") {
		t.Errorf("replacement missing from %q", got)
	}
}

func TestFullReplace(t *testing.T) {
	action := FullReplace{Text: "module v2; endmodule"}
	got, err := action.Apply("module v1; endmodule")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got != "module v2; endmodule" {
		t.Errorf("Apply = %q", got)
	}
}
