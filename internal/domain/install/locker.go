package install

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// prefixLocker enforces §4.F's parallelism rule: concurrent tasks must
// have disjoint target-path prefixes. A task acquires its own
// TargetPath before starting work and releases it on completion.
// Acquire polls rather than blocking on a condition variable so a
// cancellation flag tripped while a task is waiting is noticed
// promptly, without every Release needing to know about it.
type prefixLocker struct {
	mu     sync.Mutex
	active map[string]bool
}

func newPrefixLocker() *prefixLocker {
	return &prefixLocker{active: make(map[string]bool)}
}

const lockerPollInterval = 5 * time.Millisecond

// Acquire blocks until path does not overlap any currently held path,
// then reserves it. It returns acquired=false without reserving
// anything if stop reports true first.
func (l *prefixLocker) Acquire(path string, stop func() bool) (acquired bool) {
	path = filepath.Clean(path)
	for {
		l.mu.Lock()
		if !l.conflictsLocked(path) {
			l.active[path] = true
			l.mu.Unlock()
			return true
		}
		l.mu.Unlock()

		if stop != nil && stop() {
			return false
		}
		time.Sleep(lockerPollInterval)
	}
}

// Release frees path so waiting tasks with overlapping prefixes can
// proceed.
func (l *prefixLocker) Release(path string) {
	path = filepath.Clean(path)
	l.mu.Lock()
	delete(l.active, path)
	l.mu.Unlock()
}

func (l *prefixLocker) conflictsLocked(path string) bool {
	for held := range l.active {
		if pathsOverlap(held, path) {
			return true
		}
	}
	return false
}

func pathsOverlap(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a+sep, b+sep) || strings.HasPrefix(b+sep, a+sep)
}
