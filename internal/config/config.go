// Package config loads pipeline settings from a YAML file with
// environment-variable fallback. File values take priority over env.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	LLM struct {
		// APIKey falls back to OPENAI_API_KEY.
		APIKey string `yaml:"api_key"`
		// BaseURL falls back to OPENAI_API_BASE_URL.
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"llm"`

	Benchmark struct {
		// Dir is the dataset directory (verilog-eval layout).
		Dir string `yaml:"dir"`
		// Filter is a task ID regexp; empty selects all tasks.
		Filter string `yaml:"filter"`
		// UseGoldenTB seeds testbench generation with <task>_test.sv.
		UseGoldenTB bool `yaml:"use_golden_tb"`
		// UseGoldenRef feeds <task>_ref.sv to the ambiguity fixer.
		UseGoldenRef bool `yaml:"use_golden_ref"`
	} `yaml:"benchmark"`

	Run struct {
		OutputDir     string `yaml:"output_dir"`
		TestbenchNum  int    `yaml:"testbench_num"`
		RTLNum        int    `yaml:"rtl_num"`
		StorePath     string `yaml:"store_path"`
		RunIdentifier string `yaml:"run_identifier"`
	} `yaml:"run"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.Temperature = 0.85
	cfg.LLM.MaxTokens = 8192
	cfg.Benchmark.Dir = "../verilog-eval/dataset_spec-to-rtl"
	cfg.Run.OutputDir = "./output"
	cfg.Run.TestbenchNum = 1
	cfg.Run.RTLNum = 1
	cfg.Run.StorePath = "rtlforge.db"
	cfg.Run.RunIdentifier = "run"
	return cfg
}

// Load reads the YAML file at path, falls back to the environment for
// credentials the file leaves empty, then fills remaining gaps with
// defaults. File values take priority over env, env over defaults.
// An empty path loads environment plus defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OPENAI_API_BASE_URL")
	}

	def := Default()
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Benchmark.Dir == "" {
		cfg.Benchmark.Dir = def.Benchmark.Dir
	}
	if cfg.Run.OutputDir == "" {
		cfg.Run.OutputDir = def.Run.OutputDir
	}
	if cfg.Run.TestbenchNum == 0 {
		cfg.Run.TestbenchNum = def.Run.TestbenchNum
	}
	if cfg.Run.RTLNum == 0 {
		cfg.Run.RTLNum = def.Run.RTLNum
	}
	if cfg.Run.StorePath == "" {
		cfg.Run.StorePath = def.Run.StorePath
	}
	if cfg.Run.RunIdentifier == "" {
		cfg.Run.RunIdentifier = def.Run.RunIdentifier
	}
	return cfg, nil
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is not set (config file or OPENAI_API_KEY)")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is not set")
	}
	if c.Benchmark.Dir == "" {
		return fmt.Errorf("benchmark.dir is not set")
	}
	if c.Run.TestbenchNum < 1 || c.Run.RTLNum < 1 {
		return fmt.Errorf("run.testbench_num and run.rtl_num must be at least 1")
	}
	return nil
}
