package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyed_SameKeySerializes(t *testing.T) {
	k := NewKeyed("")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(context.Background(), "a.test")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxInside) {
				atomic.StoreInt32(&maxInside, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, k.Held(), "entries should be dropped after release")
}

func TestKeyed_DifferentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed("")

	unlockA, err := k.Lock(context.Background(), "a.test")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := k.Lock(context.Background(), "b.test")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b.test blocked behind a.test")
	}
}

func TestKeyed_UnlockIsIdempotent(t *testing.T) {
	k := NewKeyed("")
	unlock, err := k.Lock(context.Background(), "a.test")
	require.NoError(t, err)
	unlock()
	assert.NotPanics(t, unlock)
	assert.Zero(t, k.Held())
}

func TestKeyed_FileLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	k := NewKeyed(dir)

	unlock, err := k.Lock(context.Background(), "a.test")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "a.test.lock"))
	unlock()

	// A second, independent lock set sees the file lock of the first.
	other := NewKeyed(dir)
	unlock, err = k.Lock(context.Background(), "a.test")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if _, err := other.Lock(ctx, "a.test"); err == nil {
		t.Skip("platform has no cross-handle file locking")
	} else {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Zero(t, other.Held())
}

func TestKeyed_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	k := NewKeyed(filepath.Join(file, "locks"))
	_, err := k.Lock(context.Background(), "a.test")
	assert.Error(t, err)
	assert.Zero(t, k.Held())
	assert.Equal(t, filepath.Join(file, "locks"), k.Dir())
}
