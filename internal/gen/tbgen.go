// Package gen holds the LLM-backed candidate generators and classifiers:
// testbenches, RTL modules, testbench scenarios, golden behavioral models,
// spec ambiguity and circuit type classification, and the edit proposers
// that drive refinement sessions.
package gen

import (
	"context"
	"fmt"
	"log"

	"rtlforge/internal/llm"
)

// TBOutput is the structured response of one testbench generation call.
type TBOutput struct {
	Reasoning string `json:"reasoning"`
	Interface string `json:"interface"`
	Testbench string `json:"testbench"`
}

var tbOutputExample = TBOutput{
	Reasoning: "All reasoning steps and advices to avoid syntax error",
	Interface: "The IO part of a SystemVerilog module, not containing the module implementation",
	Testbench: "The testbench code to test the module",
}

// TBGenerator produces SystemVerilog testbenches plus the module IO interface
// from a natural-language spec. When a golden testbench is supplied the
// generation is seeded with it and instructed to preserve its behavior.
type TBGenerator struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int

	// GoldenTestbench, when non-empty, switches to golden-guided generation.
	GoldenTestbench string
	// UseQueueDisplay selects the queue-based mismatch display instructions
	// suited to sequential circuits.
	UseQueueDisplay bool

	failedTrials []llm.Message
}

// NewTBGenerator creates a generator bound to the given client.
func NewTBGenerator(client llm.Client, meter *llm.Meter, maxTokens int) *TBGenerator {
	return &TBGenerator{client: client, meter: meter, maxTokens: maxTokens, UseQueueDisplay: true}
}

// Reset drops accumulated failed-trial context.
func (g *TBGenerator) Reset() {
	g.failedTrials = nil
}

// AddFailedTrial records a failed earlier attempt. All recorded trials are
// replayed into subsequent generations so the model avoids repeating them.
func (g *TBGenerator) AddFailedTrial(failedSimLog, previousCode, previousTB string) {
	g.failedTrials = append(g.failedTrials, llm.Message{
		Role: llm.RoleUser,
		Content: fill(failedTrialPrompt,
			"{failed_sim_log}", failedSimLog,
			"{previous_code}", addLineNumbers(previousCode),
			"{previous_tb}", addLineNumbers(previousTB),
		),
	})
}

func (g *TBGenerator) initMessages(inputSpec string) []llm.Message {
	displayPrompt := displayMomentPrompt
	if g.UseQueueDisplay {
		displayPrompt = displayQueuePrompt
	}

	var content string
	if g.GoldenTestbench != "" {
		content = fill(goldenTBPrompt,
			"{input_spec}", inputSpec,
			"{golden_testbench}", g.GoldenTestbench,
			"{display_prompt}", displayPrompt,
		)
	} else {
		content = fill(tbPrompt,
			"{input_spec}", inputSpec,
			"{display_prompt}", displayPrompt,
		)
	}

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: svExpertSystem},
		{Role: llm.RoleUser, Content: content},
	}
	return append(msgs, g.failedTrials...)
}

func (g *TBGenerator) orderMessage() llm.Message {
	extra := extraOrderTB
	if g.GoldenTestbench != "" {
		extra = extraOrderGoldenTB
	}
	return llm.Message{
		Role:    llm.RoleUser,
		Content: fill(orderPrompt, "{output_format}", formatExample(tbOutputExample)) + extra,
	}
}

// Generate produces one testbench and interface. Malformed responses are
// retried with the decode error replayed, up to the decode trial bound.
func (g *TBGenerator) Generate(ctx context.Context, inputSpec string) (*TBOutput, error) {
	g.meter.SetTag("tb_generator")
	history := g.initMessages(inputSpec)
	order := g.orderMessage()

	var lastErr error
	for trial := 0; trial < decodeMaxTrials; trial++ {
		resp, err := g.client.Chat(ctx, append(append([]llm.Message{}, history...), order), g.maxTokens)
		if err != nil {
			return nil, fmt.Errorf("testbench generation: %w", err)
		}

		var out TBOutput
		if err := llm.Decode(resp.Content, &out); err != nil {
			log.Printf("tb_generator: decode trial %d failed: %v", trial+1, err)
			history = append(history,
				llm.Message{Role: llm.RoleModel, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: err.Error()},
			)
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, fmt.Errorf("testbench generation: %w", lastErr)
}
