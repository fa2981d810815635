package gen

import (
	"context"
	"fmt"
	"log"

	"rtlforge/internal/llm"
)

// Classification is a closed-vocabulary label from a classifier.
type Classification string

const (
	Ambiguous   Classification = "ambiguous"
	Unambiguous Classification = "unambiguous"

	Combinational Classification = "CMB"
	Sequential    Classification = "SEQ"
)

// Report is a classifier's ruling with its supporting reasoning. The
// reasoning is kept because the ambiguity fixer consumes it verbatim.
type Report struct {
	Reasoning      string         `json:"reasoning"`
	Classification Classification `json:"classification"`
}

var reportExampleAmbiguity = Report{
	Reasoning:      "All reasoning steps",
	Classification: "ambiguous or unambiguous (do not use any other words)",
}

var reportExampleCircuitType = Report{
	Reasoning:      "All reasoning to analyze the circuit type",
	Classification: "CMB or SEQ (do not use any other words)",
}

// classify runs one closed-vocabulary classification call with decode
// retries. Off-vocabulary labels count as decode failures and are resampled.
func classify(ctx context.Context, client llm.Client, maxTokens int, history []llm.Message, example Report, allowed ...Classification) (*Report, error) {
	var lastErr error
	order := llm.Message{
		Role:    llm.RoleUser,
		Content: fill(orderPrompt, "{output_format}", formatExample(example)) + extraOrderAmbiguity,
	}

	for trial := 0; trial < decodeMaxTrials; trial++ {
		resp, err := client.Chat(ctx, append(append([]llm.Message{}, history...), order), maxTokens)
		if err != nil {
			return nil, fmt.Errorf("classification: %w", err)
		}

		var report Report
		decodeErr := llm.Decode(resp.Content, &report)
		if decodeErr == nil {
			ok := false
			for _, a := range allowed {
				if report.Classification == a {
					ok = true
					break
				}
			}
			if !ok {
				decodeErr = &llm.DecodeError{
					Raw: resp.Content,
					Err: fmt.Errorf("classification %q is not in the allowed vocabulary %v", report.Classification, allowed),
				}
			}
		}
		if decodeErr != nil {
			log.Printf("classifier: decode trial %d failed: %v", trial+1, decodeErr)
			history = append(history,
				llm.Message{Role: llm.RoleModel, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: decodeErr.Error()},
			)
			lastErr = decodeErr
			continue
		}
		return &report, nil
	}
	return nil, fmt.Errorf("classification: %w", lastErr)
}

// AmbiguityClassifier decides whether a spec admits diverging RTL
// implementations.
type AmbiguityClassifier struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int
}

// NewAmbiguityClassifier creates a classifier bound to the given client.
func NewAmbiguityClassifier(client llm.Client, meter *llm.Meter, maxTokens int) *AmbiguityClassifier {
	return &AmbiguityClassifier{client: client, meter: meter, maxTokens: maxTokens}
}

// Classify labels the spec ambiguous or unambiguous.
func (c *AmbiguityClassifier) Classify(ctx context.Context, inputSpec string) (*Report, error) {
	c.meter.SetTag("ambiguity_classifier")
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: rtlExpertSystem},
		{Role: llm.RoleUser, Content: fill(ambiguityPrompt, "{input_spec}", inputSpec)},
	}
	return classify(ctx, c.client, c.maxTokens, history, reportExampleAmbiguity, Ambiguous, Unambiguous)
}

// CircuitTypeClassifier decides whether a spec describes combinational or
// sequential logic, steering scenario generation.
type CircuitTypeClassifier struct {
	client    llm.Client
	meter     *llm.Meter
	maxTokens int
}

// NewCircuitTypeClassifier creates a classifier bound to the given client.
func NewCircuitTypeClassifier(client llm.Client, meter *llm.Meter, maxTokens int) *CircuitTypeClassifier {
	return &CircuitTypeClassifier{client: client, meter: meter, maxTokens: maxTokens}
}

// Classify labels the spec CMB or SEQ.
func (c *CircuitTypeClassifier) Classify(ctx context.Context, inputSpec string) (*Report, error) {
	c.meter.SetTag("circuit_type_classifier")
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: rtlExpertSystem},
		{Role: llm.RoleUser, Content: fill(circuitTypePrompt, "{input_spec}", inputSpec)},
	}
	return classify(ctx, c.client, c.maxTokens, history, reportExampleCircuitType, Combinational, Sequential)
}
