// Package llm holds the completion backends. A backend is picked by name
// from a registry rather than resolved by reflection.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Completer turns a prompt into a reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Params configures a backend.
type Params struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	// Reply is the fixed docstring body of the mock backend.
	Reply string
}

// Factory builds a backend from Params.
type Factory func(p Params) (Completer, error)

var ErrUnknownBackend = errors.New("unknown completion backend")

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a backend available under name. Registering the same name
// twice replaces the earlier factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New builds the backend registered under name.
func New(name string, p Params) (Completer, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, name, Names())
	}
	return f(p)
}

// Names lists the registered backends.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("openai", func(p Params) (Completer, error) { return NewOpenAI(p) })
	Register("compatible", func(p Params) (Completer, error) { return NewClientFrom(p), nil })
	Register("mock", func(p Params) (Completer, error) { return NewMock(p.Reply), nil })
}

// retryableError marks a failure worth another attempt (rate limits,
// server errors, network errors).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so IsRetryable reports true.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// systemPrompt frames every request.
const systemPrompt = "You write Python docstrings. Reply with the docstring only, enclosed in triple double quotes."
