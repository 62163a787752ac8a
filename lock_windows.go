//go:build windows

package ldt

import (
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = kernel32.NewProc("LockFileEx")
	procUnlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const lockfileExclusiveLock = 0x00000002

// LockFileEx locks a byte region rather than a handle. Locking from offset 0
// with the largest length (high and low dwords both 0xFFFFFFFF) covers the
// header and every entry appended later, which is what flock gives on unix.
// Without LOCKFILE_FAIL_IMMEDIATELY the call blocks like flock does.
func (l *fileLock) lock(mode LockMode) error {
	var flags uintptr
	if mode == LockExclusive {
		flags = lockfileExclusiveLock
	}
	var ol syscall.Overlapped
	r, _, err := procLockFileEx.Call(uintptr(l.f.Fd()), flags, 0,
		0xFFFFFFFF, 0xFFFFFFFF, uintptr(unsafe.Pointer(&ol)))
	if r == 0 {
		return err
	}
	return nil
}

func (l *fileLock) unlock() error {
	var ol syscall.Overlapped
	r, _, err := procUnlockFileEx.Call(uintptr(l.f.Fd()), 0,
		0xFFFFFFFF, 0xFFFFFFFF, uintptr(unsafe.Pointer(&ol)))
	if r == 0 {
		return err
	}
	return nil
}
