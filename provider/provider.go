// Package provider defines the byte store a swrcache.Manager persists its
// entries in.
//
// Stores are opaque to the payload: whatever []byte went into Set for a key
// comes back unchanged from Get. A store may compress or encrypt internally
// as long as Get undoes it.
//
// Keys beginning with "<namespace>:" belong to the manager. Values written
// there by anything else fail to decode as an entry and get evicted on the
// next read.
package provider

import (
	"context"
	"time"
)

// Provider stores envelope bytes under string keys.
// Implementations are used from concurrent loads. Each key is independent and
// the last Set for a key wins.
type Provider interface {
	// Get reports (value, true, nil) for a stored key and (nil, false, nil)
	// when the key is absent. A failing backend returns a non-nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value. A ttl <= 0 keeps it until Del; stores without
	// expiry may ignore ttl, and stores without admission may ignore cost.
	// ok is false when the store declined the write (eviction pressure).
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes key. Absent keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases the backend.
	Close(ctx context.Context) error
}
