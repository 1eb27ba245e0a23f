// Package fsx has the file-write primitives shared by the policy writers.
package fsx

import (
	"bytes"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes content via a temp file and rename so a crash
// mid-write never leaves a partial file behind.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WriteFileIfChanged writes content atomically unless the file already holds
// exactly that content. Returns whether a write happened. The short-circuit
// keeps repeated provisioning runs from triggering spurious service restarts.
func WriteFileIfChanged(path string, content []byte, perm os.FileMode) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err := WriteFileAtomic(path, content, perm); err != nil {
		return false, err
	}
	return true, nil
}
