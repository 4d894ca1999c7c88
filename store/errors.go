package store

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchKey = errors.New("no such key")
	ErrOutOfSync = errors.New("data out-of-sync")
)

// OutOfSyncError means the local replica no longer matches the server: a
// pop arrived for a key that is unknown or already empty. Only a resync
// can repair it.
type OutOfSyncError struct {
	Op     string
	Key    string
	Reason string
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("%s(%s): %s; data out-of-sync", e.Op, e.Key, e.Reason)
}

func (e *OutOfSyncError) Is(target error) bool {
	return target == ErrOutOfSync
}

// IsOutOfSync reports whether err, or anything it wraps, is an OutOfSyncError.
func IsOutOfSync(err error) bool {
	var oos *OutOfSyncError
	return errors.As(err, &oos)
}
