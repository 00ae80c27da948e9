package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultMockReply is the docstring body the mock backend returns when none
// is configured.
const DefaultMockReply = "TODO: describe this element."

// Mock is an offline backend. It answers every prompt with the same
// docstring and records what it was asked.
type Mock struct {
	Reply string
	Delay time.Duration // ignores ctx while sleeping, like a hung backend
	Err   error

	mu      sync.Mutex
	prompts []string
}

// NewMock returns a mock answering with reply.
func NewMock(reply string) *Mock {
	if reply == "" {
		reply = DefaultMockReply
	}
	return &Mock{Reply: reply}
}

// Complete implements Completer.
func (m *Mock) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return `"""` + m.Reply + `"""`, nil
}

// Prompts returns the prompts received so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
