//go:build !(linux || darwin || freebsd)

package db

import (
	"path/filepath"
	"sync"
)

// Without flock, open stores are only tracked within this process.
var (
	openMu    sync.Mutex
	openPaths = map[string]int{}
)

type dbLock struct {
	key      string
	released bool
}

func lockKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func acquireShared(path string) (*dbLock, error) {
	key := lockKey(path)
	openMu.Lock()
	defer openMu.Unlock()
	openPaths[key]++
	return &dbLock{key: key}, nil
}

func tryExclusive(path string) (*dbLock, error) {
	key := lockKey(path)
	openMu.Lock()
	defer openMu.Unlock()
	if openPaths[key] > 0 {
		return nil, ErrDeleteBlocked
	}
	return &dbLock{key: key, released: true}, nil
}

func (l *dbLock) release() {
	if l == nil || l.released {
		return
	}
	openMu.Lock()
	defer openMu.Unlock()
	if openPaths[l.key]--; openPaths[l.key] <= 0 {
		delete(openPaths, l.key)
	}
	l.released = true
}

func lockPath(path string) string { return path + ".lock" }

func diskFree(string) (uint64, bool) { return 0, false }
