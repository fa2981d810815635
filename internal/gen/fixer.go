package gen

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rtlforge/internal/llm"
)

// AmbiguityFixer rewrites an ambiguous spec into a precise one, guided by
// the classifier's reasoning and optionally the golden reference RTL.
type AmbiguityFixer struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int
}

// NewAmbiguityFixer creates a fixer bound to the given client.
func NewAmbiguityFixer(client llm.Client, meter *llm.Meter, maxTokens int) *AmbiguityFixer {
	return &AmbiguityFixer{client: client, meter: meter, maxTokens: maxTokens}
}

// Fix returns the rewritten spec. The response is plain text, not JSON.
func (f *AmbiguityFixer) Fix(ctx context.Context, inputSpec, reasons, goldenRef string) (string, error) {
	f.meter.SetTag("ambiguity_fixer")

	content := fill(fixerPrompt,
		"{input_spec}", inputSpec,
		"{reasons}", reasons,
	)
	if goldenRef != "" {
		content += fill(fixerGoldenRefPrompt, "{golden_ref}", goldenRef)
	}

	resp, err := f.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: rtlExpertSystem},
		{Role: llm.RoleUser, Content: content},
	}, f.maxTokens)
	if err != nil {
		return "", fmt.Errorf("ambiguity fix: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// fixMaxIters bounds the classify-fix alternation for one spec.
const fixMaxIters = 5

// FixOutcome reports one spec's trip through the classify-fix sub-loop.
type FixOutcome struct {
	// Initial is the classification of the spec as given.
	Initial *Report
	// Final is the classification after the last fix iteration; equals
	// Initial when no fixing ran.
	Final *Report
	// Spec is the latest spec text. Each fixer output replaces the previous
	// spec unconditionally, so this is the last rewrite even if it still
	// classifies as ambiguous.
	Spec string
	// FixIters counts fixer invocations; a spec with FixIters > 0 counts as
	// fixed in the batch statistics regardless of the final label.
	FixIters int
}

// Entered reports whether the spec needed fixing at all.
func (o *FixOutcome) Entered() bool {
	return o.FixIters > 0
}

// FixLoop alternates classification and fixing until the spec classifies as
// unambiguous or the iteration bound is hit.
type FixLoop struct {
	Classifier *AmbiguityClassifier
	Fixer      *AmbiguityFixer
}

// Run drives the sub-loop for one spec.
func (l *FixLoop) Run(ctx context.Context, inputSpec, goldenRef string) (*FixOutcome, error) {
	report, err := l.Classifier.Classify(ctx, inputSpec)
	if err != nil {
		return nil, err
	}

	out := &FixOutcome{Initial: report, Final: report, Spec: inputSpec}
	for out.Final.Classification == Ambiguous && out.FixIters < fixMaxIters {
		out.FixIters++

		fixed, err := l.Fixer.Fix(ctx, out.Spec, out.Final.Reasoning, goldenRef)
		if err != nil {
			return nil, err
		}
		// The rewrite always replaces the working spec, even if the next
		// classification still finds it ambiguous.
		out.Spec = fixed
		log.Printf("fix loop: fixed spec, try to classify again, trial %d", out.FixIters)

		report, err = l.Classifier.Classify(ctx, out.Spec)
		if err != nil {
			return nil, err
		}
		out.Final = report
	}
	return out, nil
}
