package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"rtlforge/internal/bench"
	"rtlforge/internal/gen"
	"rtlforge/internal/store"
)

// Ambiguity batch artifact names.
const (
	AmbiguityFile      = "check_ambiguous.json"
	AmbiguityFixedFile = "check_ambiguous_fixed.json"
	CircuitTypeFile    = "check_circuit_type.json"
)

// AmbiguityAgent runs the classify-fix sub-loop over a batch of specs.
type AmbiguityAgent struct {
	Loop      *gen.FixLoop
	OutputDir string
	// DatasetDir receives the <task>_prompt_fixed.txt rewrites so later runs
	// can pick them up next to the original prompts.
	DatasetDir   string
	UseGoldenRef bool

	Store *store.Store
	RunID string
}

func writeJSON(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeArtifact(dir, name, string(data))
}

// Run processes every task and appends the sorted summary plus statistics to
// summary_ambiguous_<runID>.txt.
func (a *AmbiguityAgent) Run(ctx context.Context, tasks []bench.Task) (*store.AmbiguityStats, error) {
	if a.RunID == "" {
		a.RunID = uuid.NewString()
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if a.Store != nil {
		if err := a.Store.CreateRun(a.RunID, "ambiguity", ""); err != nil {
			return nil, err
		}
	}

	var summary []string
	stats := &store.AmbiguityStats{}

	for _, task := range tasks {
		taskDir := filepath.Join(a.OutputDir, task.ID)
		if err := os.MkdirAll(taskDir, 0755); err != nil {
			return nil, fmt.Errorf("create task dir: %w", err)
		}

		var goldenRef string
		if a.UseGoldenRef && task.GoldenRefPath != "" {
			data, err := os.ReadFile(task.GoldenRefPath)
			if err != nil {
				return nil, fmt.Errorf("read golden ref: %w", err)
			}
			goldenRef = string(data)
		}

		out, err := a.Loop.Run(ctx, task.Spec, goldenRef)
		if err != nil {
			// A spec that cannot be classified is skipped, not fatal to the
			// batch.
			log.Printf("ambiguity check for %s failed: %v", task.ID, err)
			summary = append(summary, fmt.Sprintf("Task: %s, Error: %v\n", task.ID, err))
			continue
		}

		if err := writeJSON(taskDir, AmbiguityFile, out.Initial); err != nil {
			return nil, err
		}
		stats.Total++
		if out.Initial.Classification == gen.Ambiguous {
			stats.Ambiguous++
		}
		summary = append(summary, fmt.Sprintf("Task: %s, Ambiguity: %s\n", task.ID, out.Initial.Classification))
		log.Printf("task %s: ambiguity %s", task.ID, out.Initial.Classification)

		if out.Entered() {
			stats.Fixed++
			if err := writeJSON(taskDir, AmbiguityFixedFile, out.Final); err != nil {
				return nil, err
			}
			if err := writeArtifact(a.DatasetDir, task.ID+"_prompt_fixed.txt", out.Spec); err != nil {
				return nil, err
			}
			summary = append(summary, fmt.Sprintf("Task: %s, fix trials %d, Classification: %s\n",
				task.ID, out.FixIters, out.Final.Classification))
		}

		if a.Store != nil {
			if err := a.Store.RecordAmbiguity(a.RunID, task.ID, string(out.Initial.Classification), out.FixIters); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(summary)
	summary = append(summary,
		"\nStatistics:\n",
		fmt.Sprintf("Total Specs: %d\n", stats.Total),
		fmt.Sprintf("Ambiguous Specs: %d\n", stats.Ambiguous),
		fmt.Sprintf("Fixed Specs: %d\n", stats.Fixed),
	)
	if err := appendSummary(filepath.Join(a.OutputDir, "summary_ambiguous_"+a.RunID+".txt"), summary); err != nil {
		return nil, err
	}

	if a.Store != nil {
		if err := a.Store.CompleteRun(a.RunID, "finished"); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// ClassifyAgent runs the circuit type classifier over a batch of specs.
type ClassifyAgent struct {
	Classifier *gen.CircuitTypeClassifier
	OutputDir  string
	RunID      string
}

// Run classifies every task and appends the sorted summary to
// summary_circuit_type_<runID>.txt.
func (a *ClassifyAgent) Run(ctx context.Context, tasks []bench.Task) error {
	if a.RunID == "" {
		a.RunID = uuid.NewString()
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var summary []string
	for _, task := range tasks {
		taskDir := filepath.Join(a.OutputDir, task.ID)
		if err := os.MkdirAll(taskDir, 0755); err != nil {
			return fmt.Errorf("create task dir: %w", err)
		}

		report, err := a.Classifier.Classify(ctx, task.Spec)
		if err != nil {
			log.Printf("circuit type check for %s failed: %v", task.ID, err)
			summary = append(summary, fmt.Sprintf("Task: %s, Error: %v\n", task.ID, err))
			continue
		}
		if err := writeJSON(taskDir, CircuitTypeFile, report); err != nil {
			return err
		}
		summary = append(summary, fmt.Sprintf("Task: %s, Circuit Type: %s\n", task.ID, report.Classification))
	}

	sort.Strings(summary)
	return appendSummary(filepath.Join(a.OutputDir, "summary_circuit_type_"+a.RunID+".txt"), summary)
}
