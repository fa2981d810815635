//go:build mage
// +build mage

package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	_ "modernc.org/sqlite"
)

const binaryName = "rtlforge"

// Build builds the rtlforge binary
func Build() error {
	mg.Deps(Lint, Test)

	fmt.Printf("Building %s...\n", binaryName)
	return sh.RunV("go", "build",
		"-o", "bin/"+binaryName,
		"-ldflags", "-s -w",
		"./cmd/rtlforge")
}

// Test runs Go unit tests with the race detector
func Test() error {
	fmt.Println("Running Go tests...")
	return sh.RunV("go", "test", "-v", "-race", "-coverprofile=coverage.out", "./...")
}

// Lint runs golangci-lint
func Lint() error {
	fmt.Println("Running linters...")
	return sh.RunV("golangci-lint", "run")
}

// LintFix runs linters with auto-fix
func LintFix() error {
	fmt.Println("Running linters with auto-fix...")
	return sh.RunV("golangci-lint", "run", "--fix")
}

// Check runs lint + test + build + tooling and dataset validation
func Check() error {
	mg.Deps(ValidateTools, ValidateDataset, Lint, Test, Build)
	fmt.Println("✅ Full check passed")
	return nil
}

// ValidateTools checks that the simulation toolchain is on PATH
func ValidateTools() error {
	fmt.Println("🔍 Checking simulation toolchain...")

	tools := []string{"iverilog", "vvp"}
	for _, tool := range tools {
		if _, err := sh.Output("which", tool); err != nil {
			return fmt.Errorf("❌ TOOLCHAIN VIOLATION: %s not found on PATH", tool)
		}
		fmt.Printf("  ✓ %s found\n", tool)
	}

	// Coverage runs need verilator too, but plain runs do not.
	if _, err := sh.Output("which", "verilator"); err != nil {
		fmt.Println("  ⚠️  verilator not found, coverage refinement unavailable")
	} else {
		fmt.Println("  ✓ verilator found")
	}
	return nil
}

// ValidateDataset checks the benchmark dataset layout
func ValidateDataset() error {
	fmt.Println("🔍 Checking benchmark dataset...")

	dir := os.Getenv("RTLFORGE_BENCHMARK_DIR")
	if dir == "" {
		dir = "verilog-eval/dataset_spec-to-rtl"
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("  ⚠️  dataset dir %s not readable, skipping\n", dir)
		return nil
	}

	prompts, testbenches, refs := 0, 0, 0
	orphans := []string{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, "_prompt.txt"):
			prompts++
			base := strings.TrimSuffix(name, "_prompt.txt")
			if !fileExists(filepath.Join(dir, base+"_test.sv")) {
				orphans = append(orphans, base)
			}
		case strings.HasSuffix(name, "_test.sv"):
			testbenches++
		case strings.HasSuffix(name, "_ref.sv"):
			refs++
		}
	}

	if len(orphans) > 0 {
		return fmt.Errorf("❌ DATASET VIOLATION: prompts without golden testbench: %v", orphans)
	}
	fmt.Printf("  ✓ %d prompts, %d golden testbenches, %d golden refs\n", prompts, testbenches, refs)
	return nil
}

// Stats prints run outcomes from the ledger
func Stats() error {
	storePath := os.Getenv("RTLFORGE_STORE")
	if storePath == "" {
		storePath = "rtlforge.db"
	}
	db, err := sql.Open("sqlite", storePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", storePath, err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT r.run_id, r.benchmark, r.status,
		       COUNT(t.task_id), COALESCE(SUM(t.passed), 0)
		FROM runs r LEFT JOIN task_results t ON t.run_id = r.run_id
		GROUP BY r.run_id ORDER BY r.started_at DESC LIMIT 20
	`)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var runID, benchmark, status string
		var total, passed int
		if err := rows.Scan(&runID, &benchmark, &status, &total, &passed); err != nil {
			return err
		}
		fmt.Printf("%s  %-14s %-9s %d/%d passed\n", runID, benchmark, status, passed, total)
	}
	return rows.Err()
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	os.RemoveAll("bin")
	os.RemoveAll("coverage.out")
	return nil
}

// Run builds and runs the pipeline
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./bin/"+binaryName, "run")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
