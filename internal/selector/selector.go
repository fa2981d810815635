// Package selector evaluates every pairing of N RTL candidates with M
// testbench candidates and picks the pairing with the lowest simulation
// mismatch count.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rtlforge/internal/oracle"
)

// PairEvaluator stages one (RTL, testbench) pairing into the shared
// evaluation workspace and runs the oracle against it.
type PairEvaluator interface {
	EvaluatePair(ctx context.Context, rtl, testbench string) (oracle.Verdict, error)
}

// WorkspaceEvaluator writes the pair under the standard artifact names in a
// directory and delegates to an oracle evaluator bound to the same directory.
type WorkspaceEvaluator struct {
	Dir       string
	Evaluator oracle.Evaluator
}

func (w *WorkspaceEvaluator) EvaluatePair(ctx context.Context, rtl, testbench string) (oracle.Verdict, error) {
	if err := os.WriteFile(filepath.Join(w.Dir, oracle.RTLFile), []byte(rtl), 0644); err != nil {
		return oracle.Verdict{}, fmt.Errorf("stage RTL: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, oracle.TestbenchFile), []byte(testbench), 0644); err != nil {
		return oracle.Verdict{}, fmt.Errorf("stage testbench: %w", err)
	}
	return w.Evaluator.Evaluate(ctx)
}

// Result holds the full verdict matrix for audit plus the argmin location.
// Matrix is indexed [rtl][testbench].
type Result struct {
	Matrix      [][]int `json:"sim_results"`
	BestRTL     int     `json:"best_rtl_idx"`
	BestTB      int     `json:"best_tb_idx"`
	MinMismatch int     `json:"min_mismatch"`
}

// Pass reports whether the selected pairing simulated with zero mismatches.
func (r *Result) Pass() bool {
	return r.MinMismatch == 0
}

// SelectBest evaluates all pairings sequentially in row-major (RTL-major)
// order and returns the argmin over mismatch count. Ties keep the first
// pairing encountered, which the strict less-than comparison guarantees.
// Candidates that failed their own syntax check are expected to have been
// excluded upstream; the lists given here are evaluated in full.
func SelectBest(ctx context.Context, eval PairEvaluator, rtlCandidates, tbCandidates []string) (*Result, error) {
	if len(rtlCandidates) == 0 {
		return nil, fmt.Errorf("no RTL candidates to select from")
	}
	if len(tbCandidates) == 0 {
		return nil, fmt.Errorf("no testbench candidates to select from")
	}

	result := &Result{MinMismatch: oracle.WorstMismatch}
	for i, rtl := range rtlCandidates {
		row := make([]int, 0, len(tbCandidates))
		for j, tb := range tbCandidates {
			verdict, err := eval.EvaluatePair(ctx, rtl, tb)
			if err != nil {
				return nil, fmt.Errorf("pairing rtl=%d tb=%d: %w", i, j, err)
			}
			row = append(row, verdict.Mismatches)

			if verdict.Mismatches < result.MinMismatch {
				result.MinMismatch = verdict.Mismatches
				result.BestRTL = i
				result.BestTB = j
			}
			log.Printf("matrix: rtl %d with tb %d: pass=%v mismatch=%d", i, j, verdict.SimPass, verdict.Mismatches)
		}
		result.Matrix = append(result.Matrix, row)
	}

	return result, nil
}

// WriteMatrix persists the full matrix as a JSON audit artifact.
func (r *Result) WriteMatrix(path string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal matrix: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write matrix: %w", err)
	}
	return nil
}
