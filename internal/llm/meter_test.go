package llm

import (
	"context"
	"testing"
)

func TestMeterAddAndTotal(t *testing.T) {
	m := NewMeter()
	m.SetTag("RTLGenerator")
	m.Add(Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150})
	m.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})

	total := m.Total()
	if total.TotalTokens != 165 {
		t.Errorf("total = %d, want 165", total.TotalTokens)
	}
	if m.Calls("RTLGenerator") != 2 {
		t.Errorf("calls = %d, want 2", m.Calls("RTLGenerator"))
	}
}

func TestMeterPerTag(t *testing.T) {
	m := NewMeter()
	m.SetTag("TBGenerator")
	m.Add(Usage{TotalTokens: 10})
	m.SetTag("RTLEditor")
	m.Add(Usage{TotalTokens: 20})

	byTag := m.ByTag()
	if byTag["TBGenerator"].TotalTokens != 10 {
		t.Errorf("TBGenerator tokens = %d", byTag["TBGenerator"].TotalTokens)
	}
	if byTag["RTLEditor"].TotalTokens != 20 {
		t.Errorf("RTLEditor tokens = %d", byTag["RTLEditor"].TotalTokens)
	}
}

func TestMeterResetBoundary(t *testing.T) {
	m := NewMeter()
	m.SetTag("a")
	m.Add(Usage{TotalTokens: 99})

	m.Reset()

	if m.Total().TotalTokens != 0 {
		t.Error("Reset should discard all counts")
	}
	// Tag survives reset; the next session reuses it.
	m.Add(Usage{TotalTokens: 1})
	if m.ByTag()["a"].TotalTokens != 1 {
		t.Error("tag should be preserved across Reset")
	}
}

type scriptedClient struct {
	responses []string
	calls     int
}

func (s *scriptedClient) Chat(_ context.Context, _ []Message, _ int) (*Response, error) {
	if s.calls >= len(s.responses) {
		s.calls++
		return &Response{Content: "", Usage: Usage{TotalTokens: 1}}, nil
	}
	content := s.responses[s.calls]
	s.calls++
	return &Response{Content: content, Usage: Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5}}, nil
}

func TestMeteredClientRecordsUsage(t *testing.T) {
	m := NewMeter()
	m.SetTag("tb_generator")
	c := NewMeteredClient(&scriptedClient{responses: []string{"hello"}}, m)

	resp, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 64)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if m.Total().TotalTokens != 5 {
		t.Errorf("meter total = %d, want 5", m.Total().TotalTokens)
	}
}

type statsClient struct {
	scriptedClient
	logged bool
}

func (s *statsClient) LogStats() { s.logged = true }

func TestMeteredClientForwardsLogStats(t *testing.T) {
	inner := &statsClient{}
	c := NewMeteredClient(inner, NewMeter())

	c.LogStats()
	if !inner.logged {
		t.Error("LogStats must reach the wrapped client")
	}

	// A client without transport stats is fine too.
	NewMeteredClient(&scriptedClient{}, NewMeter()).LogStats()
}
