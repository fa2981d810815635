package gen

import (
	"context"
	"fmt"

	"rtlforge/internal/llm"
)

// GoldenModelGenerator produces a Python behavioral model ("GoldenDUT") of the
// spec. The generated class is combined with a fixed checker tail that replays
// the testbench's TBout.txt signal dump through it.
type GoldenModelGenerator struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int
}

// NewGoldenModelGenerator creates a generator bound to the given client.
func NewGoldenModelGenerator(client llm.Client, meter *llm.Meter, maxTokens int) *GoldenModelGenerator {
	return &GoldenModelGenerator{client: client, meter: meter, maxTokens: maxTokens}
}

// Generate returns the complete runnable checker script: the GoldenDUT class
// extracted from the response plus the checker tail.
func (g *GoldenModelGenerator) Generate(ctx context.Context, problemDescription, checkerSpec string) (string, error) {
	g.meter.SetTag("golden_model_generator")

	resp, err := g.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: pyExpertSystem},
		{Role: llm.RoleUser, Content: fill(goldenModelPrompt,
			"{problem_description}", problemDescription,
			"{checker_spec}", checkerSpec,
		)},
	}, g.maxTokens)
	if err != nil {
		return "", fmt.Errorf("golden model generation: %w", err)
	}

	code, ok := llm.ExtractCode(resp.Content, "python")
	if !ok {
		return "", &llm.DecodeError{
			Raw: resp.Content,
			Err: fmt.Errorf("response carries no python code block"),
		}
	}
	return code + CheckerTail, nil
}
