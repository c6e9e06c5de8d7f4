package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

func TestAtomicWrite_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "site.conf")

	require.NoError(t, AtomicWrite(path, "server {}\r\n"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server {}\n", string(got))
	assert.NoFileExists(t, path+BackupSuffix)
	assert.NoFileExists(t, path+TempSuffix)
}

func TestAtomicWrite_KeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, AtomicWrite(path, "new"))

	got, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(got))

	bak, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "old", string(bak))

	info, err := os.Stat(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(old), "backup mtime %v, want %v", info.ModTime(), old)
}

func TestAtomicWrite_Permissions(t *testing.T) {
	tests := []struct {
		name     string
		existing os.FileMode // 0 means no file yet
		want     os.FileMode
	}{
		{"new file", 0, FileMode},
		{"keeps tighter mode", 0640, 0640},
		{"keeps private mode", 0600, 0600},
		{"keeps wider mode", 0664, 0664},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pool.conf")
			if tt.existing != 0 {
				require.NoError(t, os.WriteFile(path, []byte("old"), tt.existing))
				require.NoError(t, os.Chmod(path, tt.existing))
			}

			require.NoError(t, AtomicWrite(path, "new"))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
		})
	}
}

func TestAtomicWrite_FailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.conf")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))
	// A directory squatting on the temp path makes the write fail.
	require.NoError(t, os.Mkdir(path+TempSuffix, 0755))

	err := AtomicWrite(path, "replacement")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFilesystem)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "original", string(got))
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", NormalizeNewlines("a\r\nb\rc\n"))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	got, err := ReadFile(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))
	got, err = ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = ReadFile(dir)
	assert.ErrorIs(t, err, errs.ErrFilesystem)
}

func TestRemovePath(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	tree := filepath.Join(dir, "tree", "public")
	require.NoError(t, os.MkdirAll(tree, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "index.php"), nil, 0644))

	target := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(target, 0755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	for _, p := range []string{file, filepath.Join(dir, "tree"), link, filepath.Join(dir, "absent"), ""} {
		assert.NoError(t, RemovePath(p), p)
	}

	assert.False(t, Exists(file))
	assert.False(t, Exists(filepath.Join(dir, "tree")))
	assert.False(t, Exists(link))
	assert.DirExists(t, target, "symlink target must survive")
}

func TestReplaceLink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "available", "a.test.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, os.WriteFile(target, []byte("conf"), 0644))

	link := filepath.Join(dir, "enabled", "a.test.conf")
	require.NoError(t, ReplaceLink(target, link))
	assert.True(t, IsSymlink(link))

	// Replacing an existing regular file at the link path.
	require.NoError(t, os.Remove(link))
	require.NoError(t, os.WriteFile(link, []byte("stale"), 0644))
	require.NoError(t, ReplaceLink(target, link))

	dest, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, dest)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "b")
	b := filepath.Join(dir, "c")

	require.NoError(t, EnsureDirs(a, b, ""))
	require.NoError(t, EnsureDirs(a, b))
	assert.DirExists(t, a)
	assert.DirExists(t, b)

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.ErrorIs(t, EnsureDirs(filepath.Join(blocker, "sub")), errs.ErrFilesystem)
}
