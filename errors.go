package goasidecache

import (
	"fmt"
	"net/http"
)

// FetchError reports a backend failure while reading a key that the store
// claimed to hold. The transport is not consulted when this happens.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q from cache: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreError reports that a response could not be written to the store. The
// downstream call had already succeeded; its response is kept on Response
// with a replayable body so callers may still use it.
type StoreError struct {
	Key      string
	Err      error
	Response *http.Response
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %q in cache: %v", e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
