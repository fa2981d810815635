package gen

import (
	"context"
	"fmt"

	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
	"rtlforge/internal/refine"
)

// Refinement session bounds. Mismatch repair gets the long budget; coverage
// tuning starts from a passing artifact and converges in fewer rounds.
const (
	mismatchMaxRounds      = 15
	mismatchAcceptedWindow = 10
	mismatchRejectedWindow = 6

	coverageMaxRounds      = 5
	coverageAcceptedWindow = 3
	coverageRejectedWindow = 3
)

const replaceCommand = "replace_content_by_matching"

// editStep is the structured response of one editing round.
type editStep struct {
	Reasoning   string `json:"reasoning"`
	ActionInput struct {
		Command string `json:"command"`
		Args    struct {
			OldContent string `json:"old_content"`
			NewContent string `json:"new_content"`
		} `json:"args"`
	} `json:"action_input"`
}

var editStepExample = map[string]interface{}{
	"reasoning": "All reasoning steps",
	"action_input": map[string]interface{}{
		"command": replaceCommand,
		"args": map[string]string{
			"old_content": "content to be replaced",
			"new_content": "content to replace",
		},
	},
}

// editProposer asks the LLM for the next localized edit of the working copy.
// It re-reads the workspace every round so the prompt always shows the
// committed artifact, never a rolled-back candidate.
type editProposer struct {
	client    llm.Client
	meter     *llm.Meter
	tag       string
	maxTokens int
	fixed     []llm.Message
	ws        refine.Workspace
}

func (p *editProposer) Propose(ctx context.Context, extra []llm.Message) (*refine.Step, error) {
	p.meter.SetTag(p.tag)

	current, err := p.ws.Read()
	if err != nil {
		return nil, err
	}
	order := llm.Message{
		Role: llm.RoleUser,
		Content: fill(editOrderPrompt, "{current_code}", addLineNumbers(current)) +
			fill(orderPrompt, "{output_format}", formatExample(editStepExample)),
	}

	messages := append(append([]llm.Message{}, p.fixed...), extra...)
	messages = append(messages, order)

	resp, err := p.client.Chat(ctx, messages, p.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.tag, err)
	}

	var step editStep
	if err := llm.Decode(resp.Content, &step); err != nil {
		return nil, err
	}
	if step.ActionInput.Command != replaceCommand {
		return nil, &llm.DecodeError{
			Raw: resp.Content,
			Err: fmt.Errorf("unknown command %q", step.ActionInput.Command),
		}
	}

	return &refine.Step{
		Reasoning: step.Reasoning,
		Action: refine.LocalizedReplace{
			OldText: step.ActionInput.Args.OldContent,
			NewText: step.ActionInput.Args.NewContent,
		},
		Response: llm.Message{Role: llm.RoleModel, Content: resp.Content},
	}, nil
}

// NewRTLMismatchEditor assembles the refinement session that repairs an RTL
// module until the testbench reports zero mismatches.
func NewRTLMismatchEditor(client llm.Client, meter *llm.Meter, maxTokens int,
	inputSpec, testbench, simFailedLog string,
	ws refine.Workspace, eval oracle.Evaluator) *refine.Loop {

	proposer := &editProposer{
		client:    client,
		meter:     meter,
		tag:       "rtl_editor",
		maxTokens: maxTokens,
		fixed: []llm.Message{
			{Role: llm.RoleSystem, Content: fill(mismatchEditorSystem, "{actions}", replaceActionDoc)},
			{Role: llm.RoleUser, Content: fill(mismatchEditInit,
				"{input_spec}", inputSpec,
				"{testbench}", testbench,
				"{sim_failed_log}", simFailedLog,
			)},
		},
		ws: ws,
	}
	cfg := refine.Config{
		Name:           "rtl editor",
		MaxRounds:      mismatchMaxRounds,
		AcceptedWindow: mismatchAcceptedWindow,
		RejectedWindow: mismatchRejectedWindow,
	}
	return refine.NewLoop(cfg, refine.NewMismatchPolicy(), eval, proposer, ws)
}

// NewTBCoverageEditor assembles the refinement session that strengthens a
// passing testbench until line and branch coverage both reach 100%.
func NewTBCoverageEditor(client llm.Client, meter *llm.Meter, maxTokens int,
	inputSpec, rtlCode, coverageReport string,
	ws refine.Workspace, eval oracle.Evaluator) *refine.Loop {

	proposer := &editProposer{
		client:    client,
		meter:     meter,
		tag:       "tb_coverage_editor",
		maxTokens: maxTokens,
		fixed: []llm.Message{
			{Role: llm.RoleSystem, Content: fill(coverageEditorSystem, "{actions}", replaceActionDoc)},
			{Role: llm.RoleUser, Content: fill(coverageEditInit,
				"{input_spec}", inputSpec,
				"{rtl_code}", rtlCode,
				"{coverage_report}", coverageReport,
			)},
		},
		ws: ws,
	}
	cfg := refine.Config{
		Name:           "tb coverage editor",
		MaxRounds:      coverageMaxRounds,
		AcceptedWindow: coverageAcceptedWindow,
		RejectedWindow: coverageRejectedWindow,
	}
	return refine.NewLoop(cfg, refine.NewCoveragePolicy(), eval, proposer, ws)
}
