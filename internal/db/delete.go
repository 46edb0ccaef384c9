package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DeleteDatabase removes the database at path together with its WAL and
// shared-memory files. It fails with ErrDeleteBlocked while any Store, in
// this process or another, holds the database open.
func DeleteDatabase(path string) error {
	if path == MemoryPath {
		return nil
	}
	lock, err := tryExclusive(path)
	if err != nil {
		if errors.Is(err, ErrDeleteBlocked) {
			return err
		}
		return fmt.Errorf("locking %s for deletion: %w", path, err)
	}
	defer lock.release()

	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	if err := os.Remove(lockPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
