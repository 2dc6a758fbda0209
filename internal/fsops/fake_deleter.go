package fsops

import "sync"

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions
type FakeDeleter struct {
	mu    sync.Mutex
	Calls []string
	// Errs maps a path to the error its delete call should return.
	Errs map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	return f.record("rm:", path)
}

func (f *FakeDeleter) RemoveAll(path string) error {
	return f.record("rmall:", path)
}

func (f *FakeDeleter) record(prefix, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, prefix+path)
	return f.Errs[path]
}

// CallCount returns the number of recorded delete calls.
func (f *FakeDeleter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
