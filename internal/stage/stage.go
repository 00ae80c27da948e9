// Package stage runs a documentation pass on a private copy of the target
// tree and copies the result back once the pass is over.
package stage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/otiai10/copy"

	"github.com/duyhunghd6/fastdoc-cli/internal/source"
	"github.com/duyhunghd6/fastdoc-cli/internal/util"
)

// ErrLocked is returned when another run is already staging the same path.
var ErrLocked = errors.New("path is locked by another run")

// Options controls where results go.
type Options struct {
	// Rewrite writes results over the original files. When false the whole
	// staged tree is copied next to the original under Surname.
	Rewrite bool
	Surname string
	// LockDir holds the advisory lock files. Defaults to os.TempDir().
	LockDir string
}

// Stage is one staged copy of a file or directory.
type Stage struct {
	// Source is the absolute original path.
	Source string
	// Root is the directory relative paths are resolved against: Source
	// itself for a directory, its parent for a file.
	Root string
	// Work is the staged counterpart of Source.
	Work string
	// Target is where Commit writes: Source, or its sibling copy.
	Target string

	dir   string
	isDir bool
	opts  Options
	lock  *flock.Flock
}

// Open locks path and copies it into a fresh staging directory.
func Open(path string, opts Options) (*Stage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access %q: %w", abs, err)
	}
	if !opts.Rewrite && opts.Surname == "" {
		return nil, errors.New("copy mode needs a surname")
	}

	lockDir := opts.LockDir
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	lock := flock.New(lockPath(lockDir, abs))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, abs)
	}

	dir, err := os.MkdirTemp("", "fastdoc-stage-*")
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	s := &Stage{
		Source: abs,
		Root:   abs,
		Work:   filepath.Join(dir, filepath.Base(abs)),
		Target: abs,
		dir:    dir,
		isDir:  info.IsDir(),
		opts:   opts,
		lock:   lock,
	}
	if !s.isDir {
		s.Root = filepath.Dir(abs)
	}
	if !opts.Rewrite {
		s.Target = util.SiblingPath(abs, opts.Surname, s.isDir)
	}

	if err := copy.Copy(abs, s.Work, copy.Options{Skip: skipVCS}); err != nil {
		s.Close()
		return nil, fmt.Errorf("stage %s: %w", abs, err)
	}
	return s, nil
}

func skipVCS(info os.FileInfo, src, dest string) (bool, error) {
	return info.IsDir() && (info.Name() == ".git" || info.Name() == ".hg"), nil
}

func lockPath(dir, abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "fastdoc-"+hex.EncodeToString(sum[:8])+".lock")
}

// WorkRoot is the staged counterpart of Root.
func (s *Stage) WorkRoot() string {
	if s.isDir {
		return s.Work
	}
	return s.dir
}

// Commit publishes the staged result. In rewrite mode only the files named
// in changed (relative to Root) are copied back, each one atomically. In
// copy mode the whole staged tree becomes the sibling copy. It returns the
// paths written.
func (s *Stage) Commit(changed []string) ([]string, error) {
	if !s.opts.Rewrite {
		if err := copy.Copy(s.Work, s.Target, copy.Options{Sync: true}); err != nil {
			return nil, fmt.Errorf("copy %s to %s: %w", s.Work, s.Target, err)
		}
		return []string{s.Target}, nil
	}

	written := make([]string, 0, len(changed))
	for _, rel := range changed {
		from := filepath.Join(s.WorkRoot(), filepath.FromSlash(rel))
		to := filepath.Join(s.Root, filepath.FromSlash(rel))
		data, err := os.ReadFile(from)
		if err != nil {
			return written, fmt.Errorf("read staged %s: %w", rel, err)
		}
		perm := os.FileMode(0o644)
		if info, err := os.Stat(to); err == nil {
			perm = info.Mode().Perm()
		}
		if err := source.WriteAtomic(to, data, perm); err != nil {
			return written, err
		}
		written = append(written, to)
	}
	return written, nil
}

// Close removes the staging directory and releases the lock. It is safe to
// call more than once.
func (s *Stage) Close() error {
	var errs []error
	if s.dir != "" {
		if err := os.RemoveAll(s.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove staging dir: %w", err))
		}
		s.dir = ""
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("unlock: %w", err))
		}
		s.lock = nil
	}
	return errors.Join(errs...)
}
