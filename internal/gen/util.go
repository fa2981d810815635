package gen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// addLineNumbers prefixes each line with its 1-based number, the form the
// editing prompts present code in.
func addLineNumbers(code string) string {
	lines := strings.Split(code, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d %s\n", i+1, line)
	}
	return b.String()
}

// formatExample renders an output-format example as indented JSON for
// embedding in an order prompt.
func formatExample(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// decodeMaxTrials bounds the fresh samples taken when a response fails to
// decode before the failure is surfaced to the caller.
const decodeMaxTrials = 3
