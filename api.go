package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/genstore"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Fetcher produces a fresh payload, typically by calling a remote API.
// Credentials belong in the closure; the manager never sees them.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Callbacks observe a single Load. Any of them may be nil.
type Callbacks[V any] struct {
	// First data for this call. fromCache reports whether it came from the store.
	OnLoaded func(v V, fromCache bool)
	// Network data replacing a value already delivered via OnLoaded(_, true).
	OnUpdated func(v V)
	// true before anything else fires, false after everything else.
	OnLoadingChanged func(loading bool)
	// Nothing to show: no usable entry and the fetch failed.
	OnError func(msg string)
}

func (cb Callbacks[V]) loading(on bool) {
	if cb.OnLoadingChanged != nil {
		cb.OnLoadingChanged(on)
	}
}

func (cb Callbacks[V]) loaded(v V, fromCache bool) {
	if cb.OnLoaded != nil {
		cb.OnLoaded(v, fromCache)
	}
}

func (cb Callbacks[V]) updated(v V) {
	if cb.OnUpdated != nil {
		cb.OnUpdated(v)
	}
}

func (cb Callbacks[V]) fail(msg string) {
	if cb.OnError != nil {
		cb.OnError(msg)
	}
}

// Source tells where Result.Value came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceNetwork
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	default:
		return "none"
	}
}

// Result summarizes a Load for callers that don't want callbacks.
type Result[V any] struct {
	Value   V
	Source  Source
	Updated bool  // a cached value was delivered first, then replaced from the network
	Err     error // set iff OnError fired
}

type SetCostFunc func(key string, raw []byte) int64

// Manager is a stale-while-revalidate cache over a Provider.
// Entries are addressed by (scope, entity type); V is the payload type and
// serialization is handled by a pluggable Codec[V].
// A Manager holds no per-call state and is safe for concurrent use.
type Manager[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Load delivers cached data (if usable) and always revalidates through fetch.
	// Store faults are logged and treated as a miss; they are never returned.
	Load(ctx context.Context, scope, entity string, fetch Fetcher[V], cb Callbacks[V]) Result[V]

	// Invalidate removes the entry. Removing an absent entry is not an error.
	Invalidate(ctx context.Context, scope, entity string) error

	// Peek returns the entry if Load would serve it from cache. It never fetches.
	Peek(ctx context.Context, scope, entity string) (v V, ok bool, err error)

	Slot(scope, entity string) Slot[V]
}

// Options tune the behavior of the manager.
// Only Provider and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	Namespace      string         // storage key prefix; "" => "swr"
	SchemaVersion  string         // entries written under another version are dropped; "" => "1"
	TTLs           TTLTable       // per-entity overrides merged over DefaultTTLs()
	DefaultTTL     time.Duration  // entity types missing from TTLs; 0 => ShortTTL
	RetainFor      time.Duration  // provider-side expiry hint; 0 => keep until invalidated
	Dedupe         bool           // share one fetch among concurrent loads of a slot
	Fence          genstore.Store // drop writes from loads that started before an Invalidate; nil => last writer wins
	Disabled       bool           // bypass the store; every Load goes to the network
	Logger         Logger         // if nil, NopLogger is used
	Hooks          Hooks          // if nil, NopHooks is used
	Now            func() time.Time
	ComputeSetCost SetCostFunc // default 1
}

func New[V any](opts Options[V]) (Manager[V], error) {
	return newManager[V](opts)
}
