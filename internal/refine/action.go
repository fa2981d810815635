// Package refine implements the generic propose-evaluate-accept/reject engine
// shared by the RTL editor, the testbench coverage editor, and any other
// oracle-backed refinement task. Concrete tasks supply a proposer, an accept
// policy, and an evaluator; the engine owns the round loop, the bounded
// histories, and the commit/rollback discipline over the working copy.
package refine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch is returned when a localized edit's old text does not occur
	// in the current artifact.
	ErrNoMatch = errors.New("old content not found in current artifact")

	// ErrMultipleMatch is returned when the old text occurs more than once,
	// making the edit ambiguous.
	ErrMultipleMatch = errors.New("old content occurs multiple times in current artifact")
)

// EditAction is a proposed change to the working artifact.
type EditAction interface {
	// Apply returns the edited artifact, or an error when the edit cannot
	// be applied unambiguously. The input is never mutated.
	Apply(current string) (string, error)

	// Name identifies the action in diagnostics.
	Name() string
}

// FullReplace swaps in a complete replacement artifact.
type FullReplace struct {
	Text string
}

func (a FullReplace) Apply(string) (string, error) {
	return a.Text, nil
}

func (a FullReplace) Name() string { return "full_replace" }

// LocalizedReplace replaces one exact occurrence of OldText with NewText.
// Tabs are expanded to four spaces on both patterns and the artifact before
// matching, so the LLM's whitespace rendering cannot defeat the match.
type LocalizedReplace struct {
	OldText string
	NewText string
}

func (a LocalizedReplace) Apply(current string) (string, error) {
	file := expandTabs(current)
	oldText := expandTabs(a.OldText)
	newText := expandTabs(a.NewText)

	switch occurrences := strings.Count(file, oldText); {
	case occurrences == 0:
		return "", fmt.Errorf("%w: %s not executed", ErrNoMatch, a.Name())
	case occurrences > 1:
		return "", fmt.Errorf("%w: %s not executed", ErrMultipleMatch, a.Name())
	}

	return strings.Replace(file, oldText, newText, 1), nil
}

func (a LocalizedReplace) Name() string { return "replace_content_by_matching" }

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
