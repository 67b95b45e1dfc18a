// Package swrcache implements a stale-while-revalidate cache for API data
// over a pluggable byte store.
//
// A Load shows whatever usable entry is stored, then always calls the
// fetcher and reconciles: a successful fetch replaces the entry and is
// reported via OnUpdated (or OnLoaded when nothing was cached); a failed
// fetch is silent if cached data was already shown and reported via OnError
// otherwise.
//
// Components:
//   - Provider: byte store (memory, SQLite, Ristretto, BigCache, Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - TTLTable: per entity type freshness; ShortTTL for orders and stats,
//     LongTTL for menu and settings.
//   - genstore.Store (optional): fences off writes from loads that began
//     before an Invalidate.
//
// Keys:
//
//	<ns>:<scope>:<entity>  - one entry per (scope, entity type), segments escaped
//
// Entries are a JSON envelope {"data", "timestamp", "version"}. Entries
// that are corrupt, written under another SchemaVersion, or older than their
// TTL are deleted on read and treated as absent.
//
// Typical use:
//
//	m, _ := swrcache.New[[]Order](swrcache.Options[[]Order]{
//		Provider: memory.New(),
//		Codec:    codec.JSON[[]Order]{},
//	})
//	swrcache.Orders(m, restaurantID).Load(ctx, fetchOrders, swrcache.Callbacks[[]Order]{
//		OnLoaded:  render,
//		OnUpdated: render,
//		OnError:   showError,
//	})
//
// After a mutation, call Invalidate (or Slot.Refresh) for the affected entity.
package swrcache
