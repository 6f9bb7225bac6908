package reconcile_test

import "sync"

type fakeRecorder struct {
	mu      sync.Mutex
	results []string
	purged  int64
}

func (f *fakeRecorder) RecordOrphan(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.results = append(f.results, result)
}

func (f *fakeRecorder) RecordPurged(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.purged += n
}

func (f *fakeRecorder) snapshot() ([]string, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.results...), f.purged
}
