package sim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Signal is one named value in a simulation dump line. Values stay strings
// because SystemVerilog x (unknown) and z (high impedance) states have no
// numeric representation; Known reports whether Int carries a decoded value.
type Signal struct {
	Name  string
	Value string
	Known bool
	Int   int64
}

// Record is the typed form of one testbench output line:
//
//	scenario: CounterRollover, count = 255, carry = 1, state = x
type Record struct {
	Scenario string
	Signals  []Signal
}

// Get returns the signal with the given name.
func (r *Record) Get(name string) (Signal, bool) {
	for _, s := range r.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

// ParseSignalDump parses the line-oriented signal text the testbenches emit
// into typed records, one per line. Lines that carry no assignment are skipped.
func ParseSignalDump(text string) ([]Record, error) {
	var records []Record
	for lineNo, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec Record
		seen := false
		for _, item := range strings.Split(line, ", ") {
			if strings.HasPrefix(item, "scenario") {
				parts := strings.SplitN(item, ": ", 2)
				if len(parts) != 2 {
					return nil, fmt.Errorf("line %d: malformed scenario field %q", lineNo+1, item)
				}
				rec.Scenario = parts[1]
				continue
			}
			parts := strings.SplitN(item, " = ", 2)
			if len(parts) != 2 {
				continue
			}
			seen = true
			sig := Signal{Name: strings.TrimSpace(parts[0]), Value: strings.TrimSpace(parts[1])}
			if !strings.ContainsAny(sig.Value, "xzXZ") {
				if v, err := strconv.ParseInt(sig.Value, 10, 64); err == nil {
					sig.Known = true
					sig.Int = v
				}
			}
			rec.Signals = append(rec.Signals, sig)
		}
		if seen || rec.Scenario != "" {
			records = append(records, rec)
		}
	}
	return records, nil
}

var (
	simPassedRe = regexp.MustCompile(`SIMULATION PASSED`)
	simFailedRe = regexp.MustCompile(`SIMULATION FAILED - (\d+) MISMATCHES DETECTED`)

	lineCovRe   = regexp.MustCompile(`(?i)line coverage\s*[:=]\s*([0-9.]+)\s*%`)
	branchCovRe = regexp.MustCompile(`(?i)branch coverage\s*[:=]\s*([0-9.]+)\s*%`)
)

// ParseSimVerdict extracts the pass flag and mismatch count from a simulation
// log. The testbenches are prompted to print exactly one of:
//
//	SIMULATION PASSED
//	SIMULATION FAILED - x MISMATCHES DETECTED, FIRST AT TIME y
//
// A log with neither line is reported as not parseable.
func ParseSimVerdict(log string) (pass bool, mismatches int, err error) {
	if m := simFailedRe.FindStringSubmatch(log); m != nil {
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			return false, 0, fmt.Errorf("mismatch count %q: %w", m[1], convErr)
		}
		return false, n, nil
	}
	if simPassedRe.MatchString(log) {
		return true, 0, nil
	}
	return false, 0, fmt.Errorf("simulation log carries no verdict line")
}

// ParseCoverage extracts line and branch coverage percentages from a coverage
// report. Missing dimensions default to 0.
func ParseCoverage(report string) (lineCov, branchCov float64) {
	if m := lineCovRe.FindStringSubmatch(report); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			lineCov = v
		}
	}
	if m := branchCovRe.FindStringSubmatch(report); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			branchCov = v
		}
	}
	return lineCov, branchCov
}
