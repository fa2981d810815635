// Package bench reads verilog-eval style benchmark datasets: per-task spec
// prompts plus optional golden testbench and reference RTL files.
package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Dataset layout directories inside a verilog-eval checkout.
const (
	DirCodeComplete = "dataset_code-complete-iccad2023"
	DirSpecToRTL    = "dataset_spec-to-rtl"
)

// Task is one benchmark problem. Spec is loaded eagerly; the testbench and
// reference files are kept as paths because they are fed to the simulator,
// not to prompts.
type Task struct {
	ID            string
	Spec          string
	GoldenTBPath  string
	GoldenRefPath string
}

const (
	specSuffix = "_prompt.txt"
	testSuffix = "_test.sv"
	refSuffix  = "_ref.sv"
)

// Load scans the dataset directory and returns the tasks whose ID matches
// the filter regexp, sorted by ID. An empty filter selects everything.
// Tasks without a spec file are skipped; the golden files are optional.
func Load(dir, filter string) ([]Task, error) {
	var filterRe *regexp.Regexp
	if filter != "" {
		re, err := regexp.Compile("^(" + filter + ")")
		if err != nil {
			return nil, fmt.Errorf("task filter %q: %w", filter, err)
		}
		filterRe = re
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}

	byID := make(map[string]*Task)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var id, kind string
		switch {
		case strings.HasSuffix(name, specSuffix):
			id, kind = strings.TrimSuffix(name, specSuffix), "spec"
		case strings.HasSuffix(name, testSuffix):
			id, kind = strings.TrimSuffix(name, testSuffix), "test"
		case strings.HasSuffix(name, refSuffix):
			id, kind = strings.TrimSuffix(name, refSuffix), "ref"
		default:
			continue
		}
		if filterRe != nil && !filterRe.MatchString(id) {
			continue
		}

		task := byID[id]
		if task == nil {
			task = &Task{ID: id}
			byID[id] = task
		}
		path := filepath.Join(dir, name)
		switch kind {
		case "spec":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read spec %s: %w", name, err)
			}
			task.Spec = string(data)
		case "test":
			task.GoldenTBPath = path
		case "ref":
			task.GoldenRefPath = path
		}
	}

	var tasks []Task
	for _, t := range byID {
		if t.Spec == "" {
			continue
		}
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}
