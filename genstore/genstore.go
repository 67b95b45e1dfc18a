// Package genstore keeps a generation counter per storage key so that
// invalidation can fence off writes from loads that started before it.
//
// Without a Store the cache is last-writer-wins: a Load whose fetch began
// before a mutation may land its (pre-mutation) result after the matching
// Invalidate. With a Store, Invalidate bumps the key's generation and a Load
// persists its result only if the generation it observed before fetching
// is still current.
package genstore

import "context"

// Store abstracts where generations live.
// Use Local for a single process, or Redis when replicas share a store.
type Store interface {
	// Current returns the generation of storageKey; missing => 0.
	Current(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
