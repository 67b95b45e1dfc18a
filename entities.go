package swrcache

import "context"

// GlobalScope is the scope of singleton data such as settings.
const GlobalScope = "global"

// Slot is a Manager bound to one (scope, entity type).
type Slot[V any] struct {
	m      Manager[V]
	Scope  string
	Entity string
}

func (s Slot[V]) Load(ctx context.Context, fetch Fetcher[V], cb Callbacks[V]) Result[V] {
	return s.m.Load(ctx, s.Scope, s.Entity, fetch, cb)
}

func (s Slot[V]) Invalidate(ctx context.Context) error {
	return s.m.Invalidate(ctx, s.Scope, s.Entity)
}

func (s Slot[V]) Peek(ctx context.Context) (V, bool, error) {
	return s.m.Peek(ctx, s.Scope, s.Entity)
}

// Refresh drops the entry and loads again. Call it after mutating the entity.
// A failed delete has already been logged by the manager; the load still runs.
func (s Slot[V]) Refresh(ctx context.Context, fetch Fetcher[V], cb Callbacks[V]) Result[V] {
	_ = s.Invalidate(ctx)
	return s.Load(ctx, fetch, cb)
}

func Orders[V any](m Manager[V], restaurantID string) Slot[V] {
	return m.Slot(restaurantID, EntityOrders)
}

func Stats[V any](m Manager[V], restaurantID string) Slot[V] {
	return m.Slot(restaurantID, EntityStats)
}

func Menu[V any](m Manager[V], restaurantID string) Slot[V] {
	return m.Slot(restaurantID, EntityMenu)
}

func Settings[V any](m Manager[V]) Slot[V] {
	return m.Slot(GlobalScope, EntitySettings)
}
