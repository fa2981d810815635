package gen

import (
	"context"
	"fmt"
	"log"

	"rtlforge/internal/llm"
)

// RTLOutput is the structured response of one RTL generation call.
type RTLOutput struct {
	Reasoning string `json:"reasoning"`
	Module    string `json:"module"`
}

var rtlOutputExample = RTLOutput{
	Reasoning: "All reasoning steps and advices to avoid syntax error",
	Module:    "The SystemVerilog module code implementing the specification",
}

// RTLGenerator produces an RTL module candidate from a spec and the IO
// interface the testbench generator settled on.
type RTLGenerator struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int

	failedTrials []llm.Message
}

// NewRTLGenerator creates a generator bound to the given client.
func NewRTLGenerator(client llm.Client, meter *llm.Meter, maxTokens int) *RTLGenerator {
	return &RTLGenerator{client: client, meter: meter, maxTokens: maxTokens}
}

// Reset drops accumulated failed-trial context.
func (g *RTLGenerator) Reset() {
	g.failedTrials = nil
}

// AddFailedTrial records a failed earlier attempt for replay.
func (g *RTLGenerator) AddFailedTrial(failedSimLog, previousCode, previousTB string) {
	g.failedTrials = append(g.failedTrials, llm.Message{
		Role: llm.RoleUser,
		Content: fill(failedTrialPrompt,
			"{failed_sim_log}", failedSimLog,
			"{previous_code}", addLineNumbers(previousCode),
			"{previous_tb}", addLineNumbers(previousTB),
		),
	})
}

// Generate produces one RTL candidate. The caller is responsible for the
// syntax check; candidates that fail it are dropped before matrix selection.
func (g *RTLGenerator) Generate(ctx context.Context, inputSpec, iface string) (*RTLOutput, error) {
	g.meter.SetTag("rtl_generator")

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: svExpertSystem},
		{Role: llm.RoleUser, Content: fill(rtlPrompt,
			"{input_spec}", inputSpec,
			"{interface}", iface,
		)},
	}
	history = append(history, g.failedTrials...)
	order := llm.Message{
		Role:    llm.RoleUser,
		Content: fill(orderPrompt, "{output_format}", formatExample(rtlOutputExample)),
	}

	var lastErr error
	for trial := 0; trial < decodeMaxTrials; trial++ {
		resp, err := g.client.Chat(ctx, append(append([]llm.Message{}, history...), order), g.maxTokens)
		if err != nil {
			return nil, fmt.Errorf("RTL generation: %w", err)
		}

		var out RTLOutput
		if err := llm.Decode(resp.Content, &out); err != nil {
			log.Printf("rtl_generator: decode trial %d failed: %v", trial+1, err)
			history = append(history,
				llm.Message{Role: llm.RoleModel, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: err.Error()},
			)
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, fmt.Errorf("RTL generation: %w", lastErr)
}
