package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCleanJSON_Bare(t *testing.T) {
	got := CleanJSON(`{"classification":"ambiguous"}`)
	if !json.Valid([]byte(got)) {
		t.Errorf("CleanJSON returned invalid JSON: %s", got)
	}
}

func TestCleanJSON_MarkdownFence(t *testing.T) {
	got := CleanJSON("```json\n{\"classification\":\"ambiguous\"}\n```")
	if got != `{"classification":"ambiguous"}` {
		t.Errorf("CleanJSON = %q, want bare JSON", got)
	}
}

func TestCleanJSON_FenceNoLang(t *testing.T) {
	got := CleanJSON("```\n{\"key\":\"value\"}\n```")
	if !json.Valid([]byte(got)) {
		t.Errorf("CleanJSON returned invalid JSON: %s", got)
	}
}

func TestCleanJSON_WhitespaceWrapped(t *testing.T) {
	got := CleanJSON("  \n  {\"key\":\"value\"}  \n  ")
	if got != `{"key":"value"}` {
		t.Errorf("CleanJSON = %q", got)
	}
}

func TestDecode_Valid(t *testing.T) {
	var out struct {
		Reasoning      string `json:"reasoning"`
		Classification string `json:"classification"`
	}
	err := Decode("```json\n{\"reasoning\":\"R1\",\"classification\":\"ambiguous\"}\n```", &out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Classification != "ambiguous" {
		t.Errorf("classification = %q", out.Classification)
	}
}

func TestDecode_FailureIsTyped(t *testing.T) {
	var out map[string]interface{}
	err := Decode("I will analyze the spec first...", &out)
	if err == nil {
		t.Fatal("Decode should fail on prose")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error is %T, want *DecodeError", err)
	}
	if decodeErr.Raw == "" {
		t.Error("DecodeError should keep the raw response text")
	}
}

func TestExtractCode_Python(t *testing.T) {
	content := "Here is the model:\n```python\nclass GoldenDUT:\n    pass\n```\ndone"
	code, ok := ExtractCode(content, "python")
	if !ok {
		t.Fatal("ExtractCode found no python block")
	}
	if code != "class GoldenDUT:\n    pass" {
		t.Errorf("code = %q", code)
	}
}

func TestExtractCode_None(t *testing.T) {
	if _, ok := ExtractCode("no fences here", "python"); ok {
		t.Error("ExtractCode should report no block")
	}
}

func TestExtractCodeBlocks_Multiple(t *testing.T) {
	content := "```python\na = 1\n```\ntext\n```sv\nmodule m; endmodule\n```"
	blocks := ExtractCodeBlocks(content)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[1].Language != "sv" {
		t.Errorf("second block language = %q", blocks[1].Language)
	}
}
