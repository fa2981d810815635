package main

import (
	"fmt"

	"rtlforge/internal/bench"
	"rtlforge/internal/config"
	"rtlforge/internal/llm"
)

// commonFlags are shared by every subcommand.
var commonFlags struct {
	configPath string
	filter     string
}

// setup loads configuration, builds the metered LLM client, and reads the
// benchmark tasks. The --filter flag overrides the configured task filter.
func setup() (*config.Config, *llm.MeteredClient, []bench.Task, error) {
	cfg, err := config.Load(commonFlags.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if commonFlags.filter != "" {
		cfg.Benchmark.Filter = commonFlags.filter
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	client := llm.NewMeteredClient(
		llm.NewHTTPClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature),
		llm.NewMeter(),
	)

	tasks, err := bench.Load(cfg.Benchmark.Dir, cfg.Benchmark.Filter)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(tasks) == 0 {
		return nil, nil, nil, fmt.Errorf("no tasks matched in %s (filter %q)", cfg.Benchmark.Dir, cfg.Benchmark.Filter)
	}
	return cfg, client, tasks, nil
}
