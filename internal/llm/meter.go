package llm

import (
	"context"
	"log"
	"sort"
	"sync"
)

// Meter accumulates token usage per component tag. One Meter is created per
// task run and passed into every component; Reset is called at each run and
// chat entry point so that counts never leak across independent sessions.
type Meter struct {
	mu     sync.Mutex
	curTag string
	counts map[string]Usage
	calls  map[string]int
}

// NewMeter creates an empty meter with no active tag.
func NewMeter() *Meter {
	return &Meter{
		counts: make(map[string]Usage),
		calls:  make(map[string]int),
	}
}

// Reset discards all accumulated counts. The current tag is kept.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = make(map[string]Usage)
	m.calls = make(map[string]int)
}

// SetTag selects the component tag that subsequent Add calls account against.
func (m *Meter) SetTag(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.curTag = tag
}

// Tag returns the currently active component tag.
func (m *Meter) Tag() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.curTag == "" {
		return "untagged"
	}
	return m.curTag
}

// Add records usage from one chat call under the current tag.
func (m *Meter) Add(u Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tag := m.curTag
	if tag == "" {
		tag = "untagged"
	}
	c := m.counts[tag]
	c.PromptTokens += u.PromptTokens
	c.CompletionTokens += u.CompletionTokens
	c.TotalTokens += u.TotalTokens
	m.counts[tag] = c
	m.calls[tag]++
}

// Total returns the usage summed over all tags.
func (m *Meter) Total() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total Usage
	for _, c := range m.counts {
		total.PromptTokens += c.PromptTokens
		total.CompletionTokens += c.CompletionTokens
		total.TotalTokens += c.TotalTokens
	}
	return total
}

// ByTag returns a copy of the per-tag usage map.
func (m *Meter) ByTag() map[string]Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Usage, len(m.counts))
	for tag, c := range m.counts {
		out[tag] = c
	}
	return out
}

// Calls returns how many chat calls were accounted under the given tag.
func (m *Meter) Calls(tag string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[tag]
}

// LogStats writes per-tag token counts to the log, tags sorted for stable output.
func (m *Meter) LogStats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.counts))
	for tag := range m.counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		c := m.counts[tag]
		log.Printf("token stats [%s]: calls=%d prompt=%d completion=%d total=%d",
			tag, m.calls[tag], c.PromptTokens, c.CompletionTokens, c.TotalTokens)
	}
}

// LatencySink receives per-call latency observations keyed by component tag.
type LatencySink interface {
	RecordLatency(tag string, latencyMs int) error
}

// MeteredClient wraps a Client and records every call's usage in the Meter.
type MeteredClient struct {
	inner   Client
	meter   *Meter
	latency LatencySink
}

// NewMeteredClient wraps inner so each call is accounted in meter.
func NewMeteredClient(inner Client, meter *Meter) *MeteredClient {
	return &MeteredClient{inner: inner, meter: meter}
}

// Meter exposes the accounting object shared with the components.
func (c *MeteredClient) Meter() *Meter {
	return c.meter
}

// LogStats forwards to the wrapped client when it reports transport state.
func (c *MeteredClient) LogStats() {
	if sl, ok := c.inner.(interface{ LogStats() }); ok {
		sl.LogStats()
	}
}

// SetLatencySink attaches an optional latency recorder. Recording errors
// are logged, never surfaced to callers.
func (c *MeteredClient) SetLatencySink(sink LatencySink) {
	c.latency = sink
}

// Chat forwards to the wrapped client and records usage on success.
func (c *MeteredClient) Chat(ctx context.Context, messages []Message, maxTokens int) (*Response, error) {
	resp, err := c.inner.Chat(ctx, messages, maxTokens)
	if err != nil {
		return nil, err
	}
	c.meter.Add(resp.Usage)
	if c.latency != nil {
		if err := c.latency.RecordLatency(c.meter.Tag(), int(resp.LatencyMs)); err != nil {
			log.Printf("latency record failed: %v", err)
		}
	}
	return resp, nil
}
