package swrcache

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSlot = errors.New("swrcache: scope and entity type are required")
	ErrNilFetcher  = errors.New("swrcache: fetcher is required")

	// Read-side rejection reasons. The entry is evicted and treated as absent;
	// these never reach callers.
	ErrSchemaMismatch = errors.New("swrcache: schema version mismatch")
	ErrExpired        = errors.New("swrcache: entry expired")
)

// StoreError is a provider fault. Load logs and absorbs it; Invalidate returns it.
type StoreError struct {
	Op  string // "get", "set", "del" or "gen"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("swrcache: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// FetchError wraps a fetcher failure for a slot. Its message is what OnError receives.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// panicError carries a recovered fetcher panic.
type panicError struct{ v any }

func (e panicError) Error() string { return fmt.Sprintf("fetcher panicked: %v", e.v) }
