package db

import "errors"

var (
	// ErrNotInitialized is returned by operations invoked before Initialize
	// or after Close.
	ErrNotInitialized = errors.New("local database not initialized")

	// ErrStorageUnavailable wraps failures to create or open the database file.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrDeleteBlocked is returned by DeleteDatabase while another connection
	// holds the database open.
	ErrDeleteBlocked = errors.New("database deletion blocked by open connection")
)
