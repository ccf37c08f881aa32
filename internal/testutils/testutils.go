// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"path/filepath"
	"testing"
	"time"
)

// TempFilePath returns a path for a scratch file inside the test's
// temporary directory.
func TempFilePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// CompletesWithin runs fn in a goroutine and reports whether it returned
// within the given duration. It is used both ways: to assert that an
// operation finishes promptly, and to assert that a documented deadlock
// really does block. When fn never returns, its goroutine is leaked by
// design.
func CompletesWithin(d time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
