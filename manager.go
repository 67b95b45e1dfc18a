package swrcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type manager[V any] struct {
	ns       string
	provider pr.Provider
	codec    c.Codec[V]
	fence    genstore.Store // nil => last writer wins
	log      Logger
	hooks    Hooks

	enabled bool
	dedupe  bool

	version        string
	policy         freshness
	retainFor      time.Duration
	now            func() time.Time
	computeSetCost SetCostFunc

	flights singleflight.Group
}

func newManager[V any](opts Options[V]) (*manager[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("swrcache: codec is required")
	}
	if opts.RetainFor < 0 {
		return nil, fmt.Errorf("swrcache: negative RetainFor %s", opts.RetainFor)
	}

	m := &manager[V]{
		provider:  opts.Provider,
		codec:     opts.Codec,
		fence:     opts.Fence,
		enabled:   !opts.Disabled,
		dedupe:    opts.Dedupe,
		retainFor: opts.RetainFor,
	}

	m.ns = coalesce(opts.Namespace, defaultNamespace)
	m.version = coalesce(opts.SchemaVersion, defaultSchemaVersion)
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	m.policy = freshness{
		ttls:     defaultTTLs.With(opts.TTLs),
		fallback: coalesce(opts.DefaultTTL, ShortTTL),
	}

	if opts.Now != nil {
		m.now = opts.Now
	} else {
		m.now = time.Now
	}
	if opts.ComputeSetCost != nil {
		m.computeSetCost = opts.ComputeSetCost
	} else {
		m.computeSetCost = func(string, []byte) int64 { return 1 }
	}
	return m, nil
}

func (m *manager[V]) Enabled() bool { return m.enabled }

func (m *manager[V]) Close(ctx context.Context) error {
	if m.fence != nil {
		_ = m.fence.Close(ctx)
	}
	if m.provider != nil {
		return m.provider.Close(ctx)
	}
	return nil
}

func (m *manager[V]) Slot(scope, entity string) Slot[V] {
	return Slot[V]{m: m, Scope: scope, Entity: entity}
}

func (m *manager[V]) Load(ctx context.Context, scope, entity string, fetch Fetcher[V], cb Callbacks[V]) (res Result[V]) {
	cb.loading(true)
	defer cb.loading(false)

	if err := checkSlot(scope, entity); err != nil {
		res.Err = err
		cb.fail(err.Error())
		return res
	}
	if fetch == nil {
		res.Err = ErrNilFetcher
		cb.fail(ErrNilFetcher.Error())
		return res
	}

	k := m.slotKey(scope, entity)

	cached, hit, err := m.lookup(ctx, k, entity)
	if err != nil {
		m.storeFault("get", k, err)
	}
	if hit {
		res.Value, res.Source = cached, SourceCache
		cb.loaded(cached, true)
	}

	// always revalidate, even on a hit
	fresh, err := m.revalidate(ctx, k, fetch)
	if err != nil {
		if hit {
			// cached value stays on screen
			m.hooks.FetchAbsorbed(k, err)
			m.log.Debug("fetch failed; keeping cached value", Fields{"key": k, "err": err})
			return res
		}
		m.hooks.FetchFailed(k, err)
		m.log.Warn("fetch failed with nothing cached", Fields{"key": k, "err": err})
		res.Err = &FetchError{Key: k, Err: err}
		cb.fail(err.Error())
		return res
	}

	res.Value, res.Source = fresh, SourceNetwork
	if hit {
		res.Updated = true
		cb.updated(fresh)
	} else {
		cb.loaded(fresh, false)
	}
	return res
}

func (m *manager[V]) Invalidate(ctx context.Context, scope, entity string) error {
	if err := checkSlot(scope, entity); err != nil {
		return err
	}
	if !m.enabled {
		return nil
	}
	k := m.slotKey(scope, entity)
	// loads issued from here on must not join a fetch that started before
	if m.dedupe {
		m.flights.Forget(k)
	}
	// bump before delete: a load that passed its generation check
	// before the bump either gets deleted here or removes its own write
	if m.fence != nil {
		if _, err := m.fence.Bump(ctx, k); err != nil {
			m.storeFault("gen", k, err)
			return &StoreError{Op: "gen", Key: k, Err: err}
		}
	}
	if err := m.provider.Del(ctx, k); err != nil {
		m.storeFault("del", k, err)
		return &StoreError{Op: "del", Key: k, Err: err}
	}
	m.log.Debug("invalidated", Fields{"key": k})
	return nil
}

func (m *manager[V]) Peek(ctx context.Context, scope, entity string) (V, bool, error) {
	var zero V
	if err := checkSlot(scope, entity); err != nil {
		return zero, false, err
	}
	k := m.slotKey(scope, entity)
	v, ok, err := m.lookup(ctx, k, entity)
	if err != nil {
		return zero, false, &StoreError{Op: "get", Key: k, Err: err}
	}
	return v, ok, nil
}

// lookup reads k and returns a usable value. Entries that fail validation
// are deleted (self-heal) and reported as a miss. err is only a provider Get fault.
func (m *manager[V]) lookup(ctx context.Context, k, entity string) (V, bool, error) {
	var zero V
	if !m.enabled {
		return zero, false, nil
	}
	raw, ok, err := m.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := m.decode(raw, entity)
	if err != nil {
		m.evict(ctx, k, err)
		return zero, false, nil
	}
	return v, true, nil
}

func (m *manager[V]) decode(raw []byte, entity string) (V, error) {
	var zero V
	e, err := wire.Decode(raw)
	if err != nil {
		return zero, err
	}
	if e.Version != m.version {
		return zero, ErrSchemaMismatch
	}
	if !m.policy.fresh(entity, e.Timestamp, m.now()) {
		return zero, ErrExpired
	}
	v, err := m.codec.Decode(e.Payload)
	if err != nil {
		return zero, fmt.Errorf("value decode: %w", err)
	}
	return v, nil
}

func (m *manager[V]) evict(ctx context.Context, k string, cause error) {
	reason := healReason(cause)
	if err := m.provider.Del(ctx, k); err != nil {
		m.storeFault("del", k, err)
	}
	m.hooks.SelfHeal(k, reason)
	m.log.Debug("dropped entry on read", Fields{"key": k, "reason": reason})
}

// revalidate runs fetch and persists its result. With dedupe on, concurrent
// callers for k share the leader's fetch and only the leader writes.
func (m *manager[V]) revalidate(ctx context.Context, k string, fetch Fetcher[V]) (V, error) {
	run := func() (V, error) {
		gen, ok := m.snapshot(ctx, k)
		v, err := safeFetch(ctx, fetch)
		if err == nil && ok {
			m.write(ctx, k, v, gen)
		}
		return v, err
	}
	if !m.dedupe {
		return run()
	}

	out, err, shared := m.flights.Do(k, func() (any, error) {
		return run()
	})
	if shared {
		m.log.Debug("shared in-flight fetch", Fields{"key": k})
	}
	v, _ := out.(V)
	return v, err
}

func (m *manager[V]) write(ctx context.Context, k string, v V, gen uint64) {
	if !m.enabled {
		return
	}
	if !m.current(ctx, k, gen) {
		m.log.Debug("invalidated during fetch; not cached", Fields{"key": k})
		return
	}
	payload, err := m.codec.Encode(v)
	if err != nil {
		m.log.Warn("value encode failed; not cached", Fields{"key": k, "err": err})
		return
	}
	raw, err := wire.Encode(wire.Entry{
		Payload:   payload,
		Timestamp: m.now().UnixMilli(),
		Version:   m.version,
	})
	if err != nil {
		m.log.Warn("entry encode failed; not cached", Fields{"key": k, "err": err})
		return
	}
	ok, err := m.provider.Set(ctx, k, raw, m.computeSetCost(k, raw), m.retainFor)
	if err != nil {
		m.storeFault("set", k, err)
		return
	}
	if !ok {
		m.hooks.ProviderSetRejected(k)
		m.log.Debug("Set rejected by provider (pressure)", Fields{"key": k})
		return
	}
	if !m.current(ctx, k, gen) {
		// Invalidate ran between the check and Set
		m.retract(ctx, k, raw)
	}
}

// retract deletes k only while it still holds raw. A load that started after
// the invalidation may already have replaced it.
func (m *manager[V]) retract(ctx context.Context, k string, raw []byte) {
	stored, ok, err := m.provider.Get(ctx, k)
	if err != nil {
		m.storeFault("get", k, err)
		return
	}
	if !ok || !bytes.Equal(stored, raw) {
		return
	}
	if err := m.provider.Del(ctx, k); err != nil {
		m.storeFault("del", k, err)
	}
}

// snapshot returns the generation to write under. ok=false skips the write.
func (m *manager[V]) snapshot(ctx context.Context, k string) (uint64, bool) {
	if m.fence == nil || !m.enabled {
		return 0, true
	}
	g, err := m.fence.Current(ctx, k)
	if err != nil {
		m.storeFault("gen", k, err)
		return 0, false
	}
	return g, true
}

func (m *manager[V]) current(ctx context.Context, k string, gen uint64) bool {
	if m.fence == nil {
		return true
	}
	g, err := m.fence.Current(ctx, k)
	if err != nil {
		m.storeFault("gen", k, err)
		return false
	}
	return g == gen
}

func (m *manager[V]) storeFault(op, k string, err error) {
	m.hooks.StoreFault(op, k, err)
	m.log.Warn("store fault; continuing without cache", Fields{"op": op, "key": k, "err": err})
}

func (m *manager[V]) slotKey(scope, entity string) string {
	return util.SlotKey(m.ns, scope, entity)
}

func checkSlot(scope, entity string) error {
	if scope == "" || entity == "" {
		return ErrInvalidSlot
	}
	return nil
}

func healReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrCorrupt):
		return ReasonCorrupt
	case errors.Is(err, ErrSchemaMismatch):
		return ReasonSchemaMismatch
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	default:
		return ReasonValueDecode
	}
}

// safeFetch turns a fetcher panic into an error.
func safeFetch[V any](ctx context.Context, fetch Fetcher[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	return fetch(ctx)
}
