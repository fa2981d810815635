package refine

import "rtlforge/internal/llm"

// History is a bounded FIFO window of chat messages. Every refinement round
// replays the full retained context to the LLM, so unbounded growth is not
// allowed: once the window is full the oldest entries are evicted.
type History struct {
	max  int
	msgs []llm.Message
}

// NewHistory creates a window holding at most max messages.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Append adds messages, evicting the oldest beyond the window size.
func (h *History) Append(msgs ...llm.Message) {
	h.msgs = append(h.msgs, msgs...)
	if len(h.msgs) > h.max {
		h.msgs = h.msgs[len(h.msgs)-h.max:]
	}
}

// Clear drops all retained messages.
func (h *History) Clear() {
	h.msgs = nil
}

// Messages returns the retained window, oldest first.
func (h *History) Messages() []llm.Message {
	return h.msgs
}

// Len reports the number of retained messages.
func (h *History) Len() int {
	return len(h.msgs)
}
