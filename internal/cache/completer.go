package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
	"github.com/duyhunghd6/fastdoc-cli/internal/splice"
)

// Completer memoizes replies of another backend, keyed by backend, model
// and prompt. Only replies holding a usable docstring are kept.
type Completer struct {
	next    llm.Completer
	backend string
	model   string
	lru     *lru.Cache[string, string]
	store   *Store
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps next with an in-memory LRU of the given size. When store is not
// nil the LRU is seeded from, and flushed back to, its snapshot.
func New(next llm.Completer, backend, model string, size int, store *Store) (*Completer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be greater than zero")
	}
	l, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	c := &Completer{next: next, backend: backend, model: model, lru: l, store: store}

	if store != nil && store.Exists(c.name()) {
		snap, err := store.Load(c.name())
		if err != nil {
			return nil, err
		}
		for k, v := range snap.Entries {
			l.Add(k, v)
		}
	}
	return c, nil
}

func (c *Completer) name() string {
	sum := sha256.Sum256([]byte(c.backend + "\x00" + c.model))
	return "completions-" + hex.EncodeToString(sum[:8])
}

func (c *Completer) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.backend + "\x00" + c.model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	k := c.key(prompt)
	if reply, ok := c.lru.Get(k); ok {
		c.hits.Add(1)
		return reply, nil
	}
	c.misses.Add(1)
	reply, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if _, ok := splice.ExtractBody(reply); ok {
		c.lru.Add(k, reply)
	}
	return reply, nil
}

// Stats returns hit and miss counts.
func (c *Completer) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Flush saves the LRU content to the store.
func (c *Completer) Flush() error {
	if c.store == nil {
		return nil
	}
	snap := &Snapshot{Backend: c.backend, Model: c.model, Entries: make(map[string]string, c.lru.Len())}
	for _, k := range c.lru.Keys() {
		if v, ok := c.lru.Peek(k); ok {
			snap.Entries[k] = v
		}
	}
	return c.store.Save(c.name(), snap)
}
