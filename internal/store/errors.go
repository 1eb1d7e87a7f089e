package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store failure classification.
// Use errors.Is(err, store.ErrNotFound) to check.
var (
	// ErrIncompatibleSchema means the database was created by software too
	// old to migrate from, or too new to understand. There is no automatic
	// recovery; the caller should tell the user to clear the cache.
	ErrIncompatibleSchema = errors.New("store: incompatible schema version")

	// ErrNotFound means an operation targeted a record that no longer
	// exists. Recoverable: the caller re-syncs metadata.
	ErrNotFound = errors.New("store: record not found")

	// ErrBackupExists means a migration would overwrite a backup file left
	// by an earlier migration. The store never deletes or overwrites a
	// backup it created.
	ErrBackupExists = errors.New("store: migration backup already exists")
)

// SchemaError wraps ErrIncompatibleSchema with the versions involved.
type SchemaError struct {
	Found int // schema version read from the database
	Want  int // schema version this build targets
}

func (e *SchemaError) Error() string {
	if e.Found > e.Want {
		return fmt.Sprintf("store: database schema version %d is newer than supported version %d"+
			" (created by a more recent studip-client; update or clear the cache)", e.Found, e.Want)
	}

	return fmt.Sprintf("store: no migration path from schema version %d to %d"+
		" (run \"studip-client clear-cache\" to reset; this discards all views)", e.Found, e.Want)
}

func (e *SchemaError) Unwrap() error {
	return ErrIncompatibleSchema
}
