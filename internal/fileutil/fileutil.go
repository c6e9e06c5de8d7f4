// Package fileutil holds the crash-safe file primitives used by the
// lifecycle manager.
//
// AtomicWrite never exposes a partially written file: content goes to a
// sibling ".tmp" file that is synced and renamed over the target, and the
// previous version is kept as a ".bak" sibling. Every error returned here is
// a FILESYSTEM SiteError naming the offending path.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

// File and directory permissions for site artifacts.
const (
	FileMode os.FileMode = 0644
	DirMode  os.FileMode = 0755
)

// Sibling suffixes left next to atomically written files.
const (
	BackupSuffix = ".bak"
	TempSuffix   = ".tmp"
)

// AtomicWrite replaces path with content.
// Line endings are normalised to LF. When path already exists its current
// content is copied to path+".bak" first and its permissions are kept.
func AtomicWrite(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return errs.Filesystem("", "create directory", filepath.Dir(path), err)
	}

	mode := FileMode
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		mode = info.Mode().Perm()
		if err := copyFile(path, path+BackupSuffix); err != nil {
			return errs.Filesystem("", "back up", path, err)
		}
	}

	tmp := path + TempSuffix
	if err := writeSynced(tmp, []byte(NormalizeNewlines(content)), mode); err != nil {
		_ = os.Remove(tmp)
		return errs.Filesystem("", "write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Filesystem("", "replace", path, err)
	}
	return nil
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ReadFile returns the content of path, or "" when it does not exist.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.Filesystem("", "read", path, err)
	}
	return string(data), nil
}

// Exists reports whether anything, including a dangling symlink, is at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsSymlink reports whether path is a symbolic link.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// RemovePath removes a file, a symlink or a directory tree at path.
// Symlinks are removed themselves, never followed. A missing path is not
// an error.
func RemovePath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Filesystem("", "remove", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !os.IsNotExist(err) {
		return errs.Filesystem("", "remove", path, err)
	}
	return nil
}

// ReplaceLink points link at target, replacing whatever was at link.
// When the filesystem refuses symlinks the target file is copied instead.
func ReplaceLink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), DirMode); err != nil {
		return errs.Filesystem("", "create directory", filepath.Dir(link), err)
	}
	if err := RemovePath(link); err != nil {
		return err
	}
	symErr := os.Symlink(target, link)
	if symErr == nil {
		return nil
	}
	if err := copyFile(target, link); err != nil {
		return errs.Filesystem("", "link", link, errs.Join(symErr, err))
	}
	return nil
}

// EnsureDirs creates every directory in dirs with its parents.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return errs.Filesystem("", "create directory", dir, err)
		}
	}
	return nil
}

// writeSynced writes data to path with exactly mode, regardless of umask
// or a stale file already at path.
func writeSynced(path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// copyFile copies src to dst keeping the mode and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
