package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"rtlforge/internal/llm"
	"rtlforge/internal/oracle"
)

// Step is one proposed edit from the LLM: the parsed action plus the raw
// assistant message that produced it, retained for history replay.
type Step struct {
	Reasoning string
	Action    EditAction
	Response  llm.Message
}

// Proposer asks the LLM for the next edit. The extra messages are the
// retained accepted and rejected exchanges from prior rounds, replayed after
// the proposer's own fixed context. A malformed response must be returned as
// *llm.DecodeError.
type Proposer interface {
	Propose(ctx context.Context, extra []llm.Message) (*Step, error)
}

// Workspace is the single on-disk working copy the loop owns. Exactly one
// writer (the loop) touches it during a session.
type Workspace interface {
	Read() (string, error)
	Write(content string) error
}

// FileWorkspace is a Workspace over one file path.
type FileWorkspace struct {
	Path string
}

func (w FileWorkspace) Read() (string, error) {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		return "", fmt.Errorf("read working copy: %w", err)
	}
	return string(data), nil
}

func (w FileWorkspace) Write(content string) error {
	if err := os.WriteFile(w.Path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write working copy: %w", err)
	}
	return nil
}

// Config bounds one refinement session.
type Config struct {
	// Name tags log lines for this loop instance.
	Name string
	// MaxRounds caps generate-evaluate rounds.
	MaxRounds int
	// AcceptedWindow and RejectedWindow bound the replayed histories, in
	// messages (each round contributes a response plus an outcome message).
	AcceptedWindow int
	RejectedWindow int
}

// Outcome reports how a session ended. Artifact is always the committed
// content: the best candidate so far even when the target was not reached.
type Outcome struct {
	Passed   bool
	Artifact string
	Rounds   int
	Final    oracle.Verdict
}

// Loop drives one refinement session: propose, apply to the working copy,
// evaluate, then accept (commit) or reject (roll back), until the policy
// reports the target reached or the round budget is exhausted.
type Loop struct {
	cfg      Config
	policy   AcceptPolicy
	eval     oracle.Evaluator
	proposer Proposer
	ws       Workspace
}

// NewLoop assembles a session from its three task-specific parts.
func NewLoop(cfg Config, policy AcceptPolicy, eval oracle.Evaluator, proposer Proposer, ws Workspace) *Loop {
	return &Loop{cfg: cfg, policy: policy, eval: eval, proposer: proposer, ws: ws}
}

// actionOutcome is the structured feedback appended to history after every
// applied or rejected action, mirrored back to the LLM verbatim.
type actionOutcome struct {
	IsActionExecuted bool `json:"is_action_executed"`
	oracle.Verdict
	ErrorMsg string `json:"error_msg,omitempty"`
}

func outcomeMessage(o actionOutcome) llm.Message {
	payload, err := json.MarshalIndent(o, "", "    ")
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"is_action_executed": %v, "error_msg": %q}`, o.IsActionExecuted, o.ErrorMsg))
	}
	return llm.Message{
		Role:    llm.RoleUser,
		Content: "Output after running given action:\n<action_output>\n" + string(payload) + "\n</action_output>",
	}
}

// Run executes the session. An error is returned only for failures fatal to
// the candidate: evaluator tool failures and workspace I/O errors. Decode
// failures and rejected edits consume a round and continue.
func (l *Loop) Run(ctx context.Context) (*Outcome, error) {
	baselineVerdict, err := l.eval.Evaluate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: baseline evaluation: %w", l.cfg.Name, err)
	}

	base := l.policy.Init(baselineVerdict)
	artifact, err := l.ws.Read()
	if err != nil {
		return nil, err
	}
	if base.Done {
		log.Printf("%s: baseline already satisfies the target, no edits needed", l.cfg.Name)
		return &Outcome{Passed: true, Artifact: artifact, Final: baselineVerdict}, nil
	}
	if !base.Proceed {
		log.Printf("%s: %s, refinement skipped", l.cfg.Name, base.Reason)
		return &Outcome{Passed: false, Artifact: artifact, Final: baselineVerdict}, nil
	}

	accepted := NewHistory(l.cfg.AcceptedWindow)
	rejected := NewHistory(l.cfg.RejectedWindow)
	last := baselineVerdict

	for round := 1; round <= l.cfg.MaxRounds; round++ {
		log.Printf("%s: round %d / %d", l.cfg.Name, round, l.cfg.MaxRounds)

		extra := append(append([]llm.Message{}, accepted.Messages()...), rejected.Messages()...)
		step, err := l.proposer.Propose(ctx, extra)
		if err != nil {
			var decodeErr *llm.DecodeError
			if errors.As(err, &decodeErr) {
				// A fresh sample next round; the malformed exchange is not
				// worth replaying.
				log.Printf("%s: %v, retrying with a fresh sample", l.cfg.Name, decodeErr)
				continue
			}
			return nil, fmt.Errorf("%s: propose: %w", l.cfg.Name, err)
		}

		committed, err := l.ws.Read()
		if err != nil {
			return nil, err
		}

		edited, applyErr := step.Action.Apply(committed)
		if applyErr != nil {
			log.Printf("%s: action rejected: %v", l.cfg.Name, applyErr)
			rejected.Append(step.Response, outcomeMessage(actionOutcome{ErrorMsg: applyErr.Error()}))
			continue
		}

		if err := l.ws.Write(edited); err != nil {
			return nil, err
		}

		verdict, err := l.eval.Evaluate(ctx)
		if err != nil {
			// Tool failure: restore the committed artifact before escalating.
			if restoreErr := l.ws.Write(committed); restoreErr != nil {
				return nil, fmt.Errorf("%s: %v; additionally failed to restore working copy: %w", l.cfg.Name, err, restoreErr)
			}
			return nil, fmt.Errorf("%s: evaluate: %w", l.cfg.Name, err)
		}

		decision := l.policy.Judge(verdict)
		if decision.Accept {
			l.policy.Commit(verdict)
			last = verdict
			rejected.Clear()
			accepted.Append(step.Response, outcomeMessage(actionOutcome{IsActionExecuted: true, Verdict: verdict}))
			log.Printf("%s: action executed", l.cfg.Name)
			if decision.Done {
				return &Outcome{Passed: true, Artifact: edited, Rounds: round, Final: verdict}, nil
			}
			continue
		}

		// Reject: roll the working copy back to the committed artifact.
		if err := l.ws.Write(committed); err != nil {
			return nil, err
		}
		reason := decision.Reason
		if verdict.Diagnostic != "" {
			reason += "\n" + verdict.Diagnostic
		}
		log.Printf("%s: action not executed: %s", l.cfg.Name, decision.Reason)
		rejected.Append(step.Response, outcomeMessage(actionOutcome{Verdict: verdict, ErrorMsg: reason}))
	}

	artifact, err = l.ws.Read()
	if err != nil {
		return nil, err
	}
	return &Outcome{Passed: false, Artifact: artifact, Rounds: l.cfg.MaxRounds, Final: last}, nil
}
