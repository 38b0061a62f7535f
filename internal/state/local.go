package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stackform-io/stackform/internal/ir"
)

// staleLockAge is how old a lock file must be before it is considered
// abandoned and taken over.
const staleLockAge = 10 * time.Minute

// LocalStore keeps applied state in a JSON file. Every Save rewrites the file
// through a temp-file rename, so readers never observe a torn state.
type LocalStore struct {
	path string

	mu     sync.Mutex
	cached *ir.AppliedState
}

func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

func (s *LocalStore) Load(ctx context.Context) (*ir.AppliedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.cached = ir.NewAppliedState()
		return s.cached.Copy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	raw, err = DecryptState(raw)
	if err != nil {
		return nil, err
	}

	var st ir.AppliedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	s.cached = &st
	return s.cached.Copy(), nil
}

func (s *LocalStore) Save(ctx context.Context, res *ir.ResourceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		s.cached = ir.NewAppliedState()
	}
	s.cached.Upsert(res)
	s.cached.Serial++
	return s.persistLocked()
}

func (s *LocalStore) Delete(ctx context.Context, addr ir.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		s.cached = ir.NewAppliedState()
	}
	s.cached.Remove(addr)
	s.cached.Serial++
	return s.persistLocked()
}

func (s *LocalStore) Snapshot() *ir.AppliedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		return ir.NewAppliedState()
	}
	return s.cached.Copy()
}

// persistLocked writes the cached state atomically: marshal, write a temp
// file in the same directory, then rename over the target.
func (s *LocalStore) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(s.cached, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	raw = append(raw, '\n')

	raw, err = EncryptState(raw)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".stackform-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Lock acquires a file lock on the state to prevent concurrent writers.
// Acquisition is atomic: the lock file is created with O_EXCL, so of two
// racing runs exactly one wins.
func (s *LocalStore) Lock() error {
	lockPath := s.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		// Held by someone else. Take over only if the holder looks dead,
		// then retry the exclusive create once.
		info, statErr := os.Stat(lockPath)
		if statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
			continue
		}
		break
	}
	return fmt.Errorf("state is locked by another process (lock file: %s); "+
		"remove the lock file manually if no other run is active", lockPath)
}

// Unlock releases the state lock.
func (s *LocalStore) Unlock() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (s *LocalStore) lockPath() string {
	return s.path + ".lock"
}
