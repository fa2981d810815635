package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rtlforge/internal/agent"
)

var coverageFlags struct {
	outputDir   string
	coverageCmd string
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Refine generated testbenches toward 100% coverage of the golden reference",
	Long: `Coverage generates a testbench for every matching task that ships a golden
reference RTL, measures line and branch coverage with the configured tool, and
runs a bounded edit loop strengthening the testbench until both reach 100% or
the round budget is exhausted. Tasks without a golden reference are skipped.

The coverage tool runs inside the task workspace and must print
"Line Coverage: <pct>%" and "Branch Coverage: <pct>%" lines.`,
	Args: cobra.NoArgs,
	RunE: runCoverage,
}

func init() {
	f := coverageCmd.Flags()
	f.StringVarP(&coverageFlags.outputDir, "output", "o", "", "Output directory (overrides config)")
	f.StringVar(&coverageFlags.coverageCmd, "coverage-cmd", "bash coverage.sh", "Coverage tool command line, run per task workspace")
}

func runCoverage(cmd *cobra.Command, _ []string) error {
	cfg, client, tasks, err := setup()
	if err != nil {
		return err
	}
	outputDir := cfg.Run.OutputDir
	if coverageFlags.outputDir != "" {
		outputDir = coverageFlags.outputDir
	}
	parts := strings.Fields(coverageFlags.coverageCmd)
	if len(parts) == 0 {
		return fmt.Errorf("empty --coverage-cmd")
	}

	ca := &agent.CoverageAgent{
		Client:          client,
		Meter:           client.Meter(),
		MaxTokens:       cfg.LLM.MaxTokens,
		OutputDir:       outputDir,
		CoverageCommand: parts[0],
		CoverageArgs:    parts[1:],
	}
	if err := ca.Run(cmd.Context(), tasks); err != nil {
		return err
	}
	fmt.Printf("coverage run %s complete\n", ca.RunID)
	return nil
}
