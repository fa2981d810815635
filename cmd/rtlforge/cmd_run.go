package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtlforge/internal/agent"
	"rtlforge/internal/store"
)

var runFlags struct {
	testbenchNum int
	rtlNum       int
	outputDir    string
	noStore      bool
	goldenCheck  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full generate-verify-refine pipeline over a benchmark",
	Long: `Run generates testbench and RTL candidates for every matching benchmark
task, evaluates all pairings in a simulation matrix, refines the best failing
pairing until it passes or the round budget is exhausted, and writes per-task
artifacts plus a sorted batch summary.

Usage:
  rtlforge run -c key.yaml --filter 'Prob131|Prob134'
  rtlforge run --testbench-num 3 --rtl-num 2`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.testbenchNum, "testbench-num", 0, "Testbench candidates per task (overrides config)")
	f.IntVar(&runFlags.rtlNum, "rtl-num", 0, "RTL candidates per task (overrides config)")
	f.StringVarP(&runFlags.outputDir, "output", "o", "", "Output directory (overrides config)")
	f.BoolVar(&runFlags.noStore, "no-store", false, "Skip the SQLite run ledger")
	f.BoolVar(&runFlags.goldenCheck, "golden-check", false, "Replay each task's signal dump through a generated Python behavioral model")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, client, tasks, err := setup()
	if err != nil {
		return err
	}
	if runFlags.testbenchNum > 0 {
		cfg.Run.TestbenchNum = runFlags.testbenchNum
	}
	if runFlags.rtlNum > 0 {
		cfg.Run.RTLNum = runFlags.rtlNum
	}
	if runFlags.outputDir != "" {
		cfg.Run.OutputDir = runFlags.outputDir
	}

	top := &agent.TopAgent{
		Client:       client,
		Meter:        client.Meter(),
		MaxTokens:    cfg.LLM.MaxTokens,
		Benchmark:    "verilog_eval",
		OutputDir:    cfg.Run.OutputDir,
		TestbenchNum: cfg.Run.TestbenchNum,
		RTLNum:       cfg.Run.RTLNum,
		UseGoldenTB:  cfg.Benchmark.UseGoldenTB,

		UseGoldenModel: runFlags.goldenCheck,
	}
	if !runFlags.noStore {
		st, err := store.Open(cfg.Run.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
		top.Store = st
		client.SetLatencySink(st)
	}

	result, err := top.RunBatch(cmd.Context(), tasks)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d/%d tasks passed (%d failed)\n",
		top.RunID, result.Passed, result.Total, result.Failed)
	return nil
}
