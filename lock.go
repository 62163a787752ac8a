// OS file locks for catalog files.
//
// A catalog writer holds an exclusive lock from create to Close; readers
// take a shared lock around each pass over the file. Concurrent passes of
// one reader share a single OS lock: it is taken by the first pass and
// released by the last, so one goroutine finishing early cannot drop the
// lock out from under another.
//
// The mutex also guards the handle. setFile(nil) waits for any lock call in
// flight and turns later calls into no-ops, so Close can release the file
// without racing a reader.
package ldt

import (
	"os"
	"sync"
)

// LockMode selects a shared or exclusive lock.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

type fileLock struct {
	mu     sync.Mutex
	f      *os.File
	shared int // passes currently holding the shared lock
}

// Lock blocks until the lock is granted.
func (l *fileLock) Lock(mode LockMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	if mode == LockExclusive {
		return l.lock(LockExclusive)
	}
	if l.shared == 0 {
		if err := l.lock(LockShared); err != nil {
			return err
		}
	}
	l.shared++
	return nil
}

// Unlock releases one hold on the lock.
func (l *fileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	if l.shared > 0 {
		l.shared--
		if l.shared > 0 {
			return nil
		}
	}
	return l.unlock()
}

func (l *fileLock) setFile(f *os.File) {
	l.mu.Lock()
	l.f = f
	l.shared = 0
	l.mu.Unlock()
}
