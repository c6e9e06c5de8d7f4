// Package lock serializes lifecycle operations per hostname.
//
// Keyed holds an in-process mutex per key, created on demand and dropped
// when the last holder releases it. When a lock directory is configured it
// also takes an exclusive flock on <dir>/<key>.lock, so two sitectl
// processes working on the same site wait for each other too. Operations on
// different keys never block one another.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pollInterval is how often a contended file lock is retried.
const pollInterval = 50 * time.Millisecond

// Keyed is a set of per-key exclusive locks.
type Keyed struct {
	dir string

	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates a Keyed lock set. An empty dir disables file locks.
func NewKeyed(dir string) *Keyed {
	return &Keyed{
		dir:   dir,
		locks: make(map[string]*entry),
	}
}

// Dir returns the lock file directory, or "" when file locks are off.
func (k *Keyed) Dir() string {
	return k.dir
}

// Lock blocks until key is held exclusively and returns the release func.
// ctx only bounds the wait for the cross-process file lock.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	e := k.acquire(key)
	e.mu.Lock()

	var f *os.File
	if k.dir != "" {
		var err error
		f, err = k.lockFile(ctx, key)
		if err != nil {
			e.mu.Unlock()
			k.release(key, e)
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if f != nil {
				_ = unlockFile(f)
				_ = f.Close()
			}
			e.mu.Unlock()
			k.release(key, e)
		})
	}, nil
}

// Held returns the number of keys currently locked or waited on.
func (k *Keyed) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *Keyed) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *Keyed) lockFile(ctx context.Context, key string) (*os.File, error) {
	if err := os.MkdirAll(k.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", k.dir, err)
	}
	path := filepath.Join(k.dir, key+".lock")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	for {
		locked, err := tryLockFile(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if locked {
			return f, nil
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
