package caches

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Reason string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("creation of cache failed for reason : %s ", ve.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (ve ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("cache validation failed")

	// ErrNotFound is returned by Fetch when no bundle is stored under the key.
	// Any other error from Fetch is a backend failure.
	ErrNotFound = errors.New("no value found in cache")

	// ErrRejected is returned by Save when the backend refused the write.
	ErrRejected = errors.New("cache rejected write")
)
