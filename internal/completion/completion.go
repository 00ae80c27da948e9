// Package completion bounds a backend call with a timeout so a hung backend
// cannot stall a run.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
)

var (
	ErrTimeout    = errors.New("completion timed out")
	ErrCompletion = errors.New("completion failed")
)

// Outcome classifies a call.
type Outcome int

const (
	OK Outcome = iota
	Timeout
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Timeout:
		return "timeout"
	case Failed:
		return "failed"
	}
	return "ok"
}

// OutcomeOf maps an error returned by Call to its outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrTimeout):
		return Timeout
	}
	return Failed
}

const defaultBackoff = 500 * time.Millisecond

// Caller runs backend calls under a timeout, retrying errors the backend
// marks retryable.
type Caller struct {
	Timeout time.Duration // zero means no limit
	Retries int
	Backoff time.Duration
}

// Call is Caller{Timeout: timeout}.Call.
func Call(ctx context.Context, timeout time.Duration, backend llm.Completer, prompt string) (string, error) {
	c := Caller{Timeout: timeout}
	return c.Call(ctx, backend, prompt)
}

type result struct {
	reply string
	err   error
}

// Call asks backend for a reply. The call is detached from ctx's
// cancellation: a user interrupt is observed between calls, not during one.
// A reply arriving after the deadline is dropped.
func (c Caller) Call(ctx context.Context, backend llm.Completer, prompt string) (string, error) {
	base := context.WithoutCancel(ctx)
	var (
		cctx   context.Context
		cancel context.CancelFunc
	)
	if c.Timeout > 0 {
		cctx, cancel = context.WithTimeout(base, c.Timeout)
	} else {
		cctx, cancel = context.WithCancel(base)
	}
	defer cancel()

	done := make(chan result, 1)
	go func() {
		reply, err := c.attempt(cctx, backend, prompt)
		done <- result{reply: reply, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.reply, nil
		}
		if cctx.Err() != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.Timeout)
		}
		return "", fmt.Errorf("%w: %w", ErrCompletion, r.err)
	case <-cctx.Done():
		return "", fmt.Errorf("%w after %s", ErrTimeout, c.Timeout)
	}
}

func (c Caller) attempt(ctx context.Context, backend llm.Completer, prompt string) (string, error) {
	if c.Retries <= 0 {
		return backend.Complete(ctx, prompt)
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	b := retry.WithMaxRetries(uint64(c.Retries), retry.NewExponential(backoff))

	var reply string
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		r, err := backend.Complete(ctx, prompt)
		if err != nil {
			if llm.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		reply = r
		return nil
	})
	return reply, err
}
