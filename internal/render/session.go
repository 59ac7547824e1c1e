package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Session guards the shared output directory. The directory is swept of
// stale files at most once per process lifetime; a file lock serializes the
// sweep against other processes sharing the directory.
type Session struct {
	dir  string
	lock *flock.Flock
	once sync.Once
	err  error
}

// NewSession creates a session for the given output directory. The lock
// file lives next to the directory so the sweep cannot delete it.
func NewSession(dir string) *Session {
	return &Session{
		dir:  dir,
		lock: flock.New(dir + ".lock"),
	}
}

// Prepare ensures the output directory exists and, on the first call in
// this process, clears leftover files from previous runs. Later calls are
// no-ops and return the first call's outcome.
func (s *Session) Prepare() error {
	s.once.Do(func() {
		s.err = s.sweep()
	})
	return s.err
}

func (s *Session) sweep() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("clear output entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}
