package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rtlforge",
	Short: "Agentic RTL generation, verification, and spec repair",
	Long: "rtlforge generates SystemVerilog RTL and testbench candidates with an LLM,\n" +
		"verifies them against each other via simulation, refines failing candidates\n" +
		"in a feedback loop, and repairs ambiguous specifications.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&commonFlags.configPath, "config", "c", "", "Path to YAML config file (env vars fill the gaps)")
	pf.StringVar(&commonFlags.filter, "filter", "", "Task ID filter regexp, e.g. 'Prob131|Prob134'")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ambiguityCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
