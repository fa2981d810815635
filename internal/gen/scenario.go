package gen

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rtlforge/internal/llm"
)

// Scenario is one named stimulus situation a testbench should cover.
type Scenario struct {
	Scenario    string `json:"scenario"`
	Description string `json:"description"`
}

// ScenarioOutput is the structured response of one scenario generation call.
type ScenarioOutput struct {
	Reasoning string     `json:"reasoning"`
	Scenarios []Scenario `json:"testbench_scenarios"`
}

var scenarioOutputExample = ScenarioOutput{
	Reasoning: "Analyze the technical specification and infer the test scenarios",
	Scenarios: []Scenario{{
		Scenario:    "The testbench scenario name",
		Description: "The description of the testbench scenario",
	}},
}

// ScenarioGenerator enumerates testbench scenarios for a spec before any
// stimulus code is written. The circuit type classification steers the
// scenario mix toward state-transition coverage for sequential designs.
type ScenarioGenerator struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int
}

// NewScenarioGenerator creates a generator bound to the given client.
func NewScenarioGenerator(client llm.Client, meter *llm.Meter, maxTokens int) *ScenarioGenerator {
	return &ScenarioGenerator{client: client, meter: meter, maxTokens: maxTokens}
}

// Generate produces the scenario list for the given spec and module header.
func (g *ScenarioGenerator) Generate(ctx context.Context, description, moduleHeader string, circuitType Classification) (*ScenarioOutput, error) {
	g.meter.SetTag("scenario_generator")

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: scenarioSystem},
		{Role: llm.RoleUser, Content: fill(scenarioPrompt,
			"{description}", description,
			"{module_header}", moduleHeader,
			"{circuit_type}", string(circuitType),
		)},
	}
	order := llm.Message{
		Role:    llm.RoleUser,
		Content: fill(orderPrompt, "{output_format}", formatExample(scenarioOutputExample)),
	}

	var lastErr error
	for trial := 0; trial < decodeMaxTrials; trial++ {
		resp, err := g.client.Chat(ctx, append(append([]llm.Message{}, history...), order), g.maxTokens)
		if err != nil {
			return nil, fmt.Errorf("scenario generation: %w", err)
		}

		var out ScenarioOutput
		if err := llm.Decode(resp.Content, &out); err != nil {
			log.Printf("scenario_generator: decode trial %d failed: %v", trial+1, err)
			history = append(history,
				llm.Message{Role: llm.RoleModel, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: err.Error()},
			)
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, fmt.Errorf("scenario generation: %w", lastErr)
}

// Render lays the scenarios out as the plain text persisted next to the
// other per-task artifacts.
func (o *ScenarioOutput) Render() string {
	var b strings.Builder
	for _, s := range o.Scenarios {
		fmt.Fprintf(&b, "scenario: %s\ndescription: %s\n\n", s.Scenario, s.Description)
	}
	return b.String()
}
