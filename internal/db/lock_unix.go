//go:build linux || darwin || freebsd

package db

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// dbLock is an advisory flock on <path>.lock. Open stores hold it shared;
// DeleteDatabase needs it exclusive.
type dbLock struct {
	f *os.File
}

func lockPath(path string) string { return path + ".lock" }

func acquireShared(path string) (*dbLock, error) {
	f, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		f.Close()
		return nil, err
	}
	return &dbLock{f: f}, nil
}

func tryExclusive(path string) (*dbLock, error) {
	f, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrDeleteBlocked
		}
		return nil, err
	}
	return &dbLock{f: f}, nil
}

func (l *dbLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}

func diskFree(path string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(path), &st); err != nil {
		return 0, false
	}
	return uint64(st.Bavail) * uint64(st.Bsize), true
}
