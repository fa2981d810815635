package gen

import (
	"context"
	"strings"
	"testing"

	"rtlforge/internal/llm"
)

func TestAmbiguityClassifier_OffVocabularyRetried(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"reasoning": "r", "classification": "maybe"}`,
		`{"reasoning": "r", "classification": "unambiguous"}`,
	}}
	c := NewAmbiguityClassifier(client, llm.NewMeter(), 4096)

	report, err := c.Classify(context.Background(), "spec text")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if report.Classification != Unambiguous {
		t.Errorf("classification = %q", report.Classification)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2 (one resample)", client.calls)
	}
}

func TestCircuitTypeClassifier_Labels(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"reasoning": "uses clk edges", "classification": "SEQ"}`,
	}}
	c := NewCircuitTypeClassifier(client, llm.NewMeter(), 4096)

	report, err := c.Classify(context.Background(), "counter spec")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if report.Classification != Sequential {
		t.Errorf("classification = %q", report.Classification)
	}
}

func newFixLoop(client llm.Client) *FixLoop {
	meter := llm.NewMeter()
	return &FixLoop{
		Classifier: NewAmbiguityClassifier(client, meter, 4096),
		Fixer:      NewAmbiguityFixer(client, meter, 4096),
	}
}

func TestFixLoop_UnambiguousSkipsFixer(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"reasoning": "clear", "classification": "unambiguous"}`,
	}}
	loop := newFixLoop(client)

	out, err := loop.Run(context.Background(), "clear spec", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Entered() {
		t.Error("an unambiguous spec must not enter fixing")
	}
	if out.FixIters != 0 || out.Spec != "clear spec" {
		t.Errorf("outcome = %+v", out)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1 (classification only)", client.calls)
	}
}

func TestFixLoop_SingleFixIteration(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"reasoning": "timing unspecified", "classification": "ambiguous"}`,
		"revised spec text",
		`{"reasoning": "now precise", "classification": "unambiguous"}`,
	}}
	loop := newFixLoop(client)

	out, err := loop.Run(context.Background(), "vague spec", "module ref; endmodule")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.FixIters != 1 {
		t.Errorf("fix iterations = %d, want 1", out.FixIters)
	}
	if !out.Entered() {
		t.Error("a fixed spec must count as entered")
	}
	if out.Spec != "revised spec text" {
		t.Errorf("spec = %q", out.Spec)
	}
	if out.Final.Classification != Unambiguous {
		t.Errorf("final classification = %q", out.Final.Classification)
	}

	// The fixer prompt carries the classifier's reasoning and the golden ref.
	fixerPromptSent := client.seen[1][1].Content
	if !strings.Contains(fixerPromptSent, "timing unspecified") {
		t.Error("classifier reasoning missing from fixer prompt")
	}
	if !strings.Contains(fixerPromptSent, "module ref; endmodule") {
		t.Error("golden reference missing from fixer prompt")
	}
}

func TestFixLoop_NoRollbackAndBounded(t *testing.T) {
	// Five rounds of fixing, all still classifying ambiguous: the loop stops
	// at the bound and keeps the LAST rewrite, never the original.
	responses := []string{`{"reasoning": "r0", "classification": "ambiguous"}`}
	for i := 0; i < fixMaxIters; i++ {
		responses = append(responses,
			"rewrite "+string(rune('a'+i)),
			`{"reasoning": "still", "classification": "ambiguous"}`,
		)
	}
	client := &scriptedClient{responses: responses}
	loop := newFixLoop(client)

	out, err := loop.Run(context.Background(), "vague spec", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.FixIters != fixMaxIters {
		t.Errorf("fix iterations = %d, want %d", out.FixIters, fixMaxIters)
	}
	if out.Spec != "rewrite e" {
		t.Errorf("spec = %q, want the last rewrite", out.Spec)
	}
	if out.Final.Classification != Ambiguous {
		t.Errorf("final classification = %q", out.Final.Classification)
	}
}
