package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtlforge/internal/agent"
	"rtlforge/internal/gen"
)

var classifyFlags struct {
	outputDir string
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify benchmark specs as combinational (CMB) or sequential (SEQ)",
	Args:  cobra.NoArgs,
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyFlags.outputDir, "output", "o", "", "Output directory (overrides config)")
}

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, client, tasks, err := setup()
	if err != nil {
		return err
	}
	outputDir := cfg.Run.OutputDir
	if classifyFlags.outputDir != "" {
		outputDir = classifyFlags.outputDir
	}

	ca := &agent.ClassifyAgent{
		Classifier: gen.NewCircuitTypeClassifier(client, client.Meter(), cfg.LLM.MaxTokens),
		OutputDir:  outputDir,
	}
	if err := ca.Run(cmd.Context(), tasks); err != nil {
		return err
	}
	fmt.Printf("circuit type run %s: %d specs classified\n", ca.RunID, len(tasks))
	return nil
}
