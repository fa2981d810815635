package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError reports an LLM response that did not parse as the expected
// structure. It keeps the raw text so callers can log or re-prompt with it.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode LLM response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CleanJSON strips markdown code fences and surrounding noise so the payload
// can be fed to the JSON decoder. Some providers wrap structured output in
// ```json ... ``` fences.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	start := strings.Index(s, "```")
	if start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			// Drop the optional language tag on the fence line.
			tag := strings.TrimSpace(rest[:nl])
			if tag == "" || tag == "json" || tag == "xml" {
				rest = rest[nl+1:]
				if end := strings.Index(rest, "```"); end >= 0 {
					return strings.TrimSpace(rest[:end])
				}
				return strings.TrimSpace(rest)
			}
		}
	}

	return s
}

// Decode parses the response text into dst after fence stripping.
// A parse failure is returned as *DecodeError, never swallowed.
func Decode(raw string, dst interface{}) error {
	cleaned := CleanJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return &DecodeError{Raw: raw, Err: err}
	}
	return nil
}

// CodeBlock is a fenced code block extracted from a markdown response.
type CodeBlock struct {
	Language string
	Content  string
}

// ExtractCodeBlocks returns every fenced code block in the response, in order.
func ExtractCodeBlocks(content string) []CodeBlock {
	var blocks []CodeBlock
	lines := strings.Split(content, "\n")

	var current *CodeBlock
	var currentLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if current == nil {
				lang := strings.TrimPrefix(trimmed, "```")
				current = &CodeBlock{Language: lang}
				currentLines = nil
			} else {
				current.Content = strings.Join(currentLines, "\n")
				blocks = append(blocks, *current)
				current = nil
				currentLines = nil
			}
		} else if current != nil {
			currentLines = append(currentLines, line)
		}
	}

	return blocks
}

// ExtractCode returns the content of the last fenced block tagged with the
// given language, or ok=false when the response carries none.
func ExtractCode(content, language string) (string, bool) {
	var found string
	ok := false
	for _, b := range ExtractCodeBlocks(content) {
		if b.Language == language || b.Language == "" {
			found = b.Content
			ok = true
		}
	}
	return found, ok
}
