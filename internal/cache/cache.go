package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists completion snapshots to disk as gob files.
type Store struct {
	CacheDir string
}

// NewStore creates a new cache store rooted at cacheDir.
func NewStore(cacheDir string) *Store {
	return &Store{CacheDir: cacheDir}
}

// Snapshot is the serializable content of one completion cache.
type Snapshot struct {
	Backend string
	Model   string
	Entries map[string]string // prompt key -> reply
}

// Save writes the snapshot to disk.
func (c *Store) Save(name string, data *Snapshot) error {
	if err := os.MkdirAll(c.CacheDir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := c.cachePath(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	return nil
}

// Load reads a snapshot from disk.
func (c *Store) Load(name string) (*Snapshot, error) {
	path := c.cachePath(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	var data Snapshot
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}

	return &data, nil
}

// Exists returns true if a cache file exists under name.
func (c *Store) Exists(name string) bool {
	_, err := os.Stat(c.cachePath(name))
	return err == nil
}

// Delete removes the cache file for name.
func (c *Store) Delete(name string) error {
	return os.Remove(c.cachePath(name))
}

func (c *Store) cachePath(name string) string {
	return filepath.Join(c.CacheDir, name+".gob")
}
