package fsops

import (
	"os"
)

// OSDeleter implements Deleter using real os package calls
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll removes path and everything beneath it. Unlike os.RemoveAll it
// reports a missing path as an error, since a caller asking to delete a
// folder that is already gone is working from a stale view.
func (OSDeleter) RemoveAll(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	return os.RemoveAll(path)
}
