//go:build !unix

package lock

import "os"

// Without flock only the in-process lock applies.
func tryLockFile(f *os.File) (bool, error) {
	return true, nil
}

func unlockFile(f *os.File) error {
	return nil
}
