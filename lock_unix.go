//go:build unix

package ldt

import "syscall"

func (l *fileLock) lock(mode LockMode) error {
	how := syscall.LOCK_SH
	if mode == LockExclusive {
		how = syscall.LOCK_EX
	}
	// No LOCK_NB: a reader opened during a scan waits for the writer to
	// finish the catalog.
	return syscall.Flock(int(l.f.Fd()), how)
}

func (l *fileLock) unlock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
