package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtlforge/internal/agent"
	"rtlforge/internal/gen"
	"rtlforge/internal/store"
)

var ambiguityFlags struct {
	outputDir    string
	useGoldenRef bool
	noStore      bool
}

var ambiguityCmd = &cobra.Command{
	Use:   "ambiguity",
	Short: "Classify benchmark specs for ambiguity and rewrite the ambiguous ones",
	Long: `Ambiguity runs each matching spec through the ambiguity classifier. Specs
labeled ambiguous enter a bounded fix loop: the spec is rewritten from the
classifier's reasoning and re-classified, up to five times. Every rewrite
replaces the working spec; the final rewrite is persisted next to the
original prompt as <task>_prompt_fixed.txt.`,
	Args: cobra.NoArgs,
	RunE: runAmbiguity,
}

func init() {
	f := ambiguityCmd.Flags()
	f.StringVarP(&ambiguityFlags.outputDir, "output", "o", "", "Output directory (overrides config)")
	f.BoolVar(&ambiguityFlags.useGoldenRef, "use-golden-ref", false, "Feed <task>_ref.sv to the fixer")
	f.BoolVar(&ambiguityFlags.noStore, "no-store", false, "Skip the SQLite run ledger")
}

func runAmbiguity(cmd *cobra.Command, _ []string) error {
	cfg, client, tasks, err := setup()
	if err != nil {
		return err
	}
	outputDir := cfg.Run.OutputDir
	if ambiguityFlags.outputDir != "" {
		outputDir = ambiguityFlags.outputDir
	}

	amb := &agent.AmbiguityAgent{
		Loop: &gen.FixLoop{
			Classifier: gen.NewAmbiguityClassifier(client, client.Meter(), cfg.LLM.MaxTokens),
			Fixer:      gen.NewAmbiguityFixer(client, client.Meter(), cfg.LLM.MaxTokens),
		},
		OutputDir:    outputDir,
		DatasetDir:   cfg.Benchmark.Dir,
		UseGoldenRef: ambiguityFlags.useGoldenRef || cfg.Benchmark.UseGoldenRef,
	}
	if !ambiguityFlags.noStore {
		st, err := store.Open(cfg.Run.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
		amb.Store = st
		client.SetLatencySink(st)
	}

	stats, err := amb.Run(cmd.Context(), tasks)
	if err != nil {
		return err
	}
	fmt.Printf("ambiguity run %s: total=%d ambiguous=%d fixed=%d\n",
		amb.RunID, stats.Total, stats.Ambiguous, stats.Fixed)
	return nil
}
