// Package async moves Hooks calls off the Load path.
//
//	sink := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := async.New(sink, 1, 1000)
//	defer hooks.Close()
//
//	m, _ := swrcache.New[[]Order](swrcache.Options[[]Order]{
//		Provider: memory.New(),
//		Codec:    codec.JSON[[]Order]{},
//		Hooks:    hooks,
//	})
package async

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

const defaultQueue = 1024

// Hooks hands every event to a bounded queue served by worker goroutines.
// A full or closed queue drops the event and counts it.
type Hooks struct {
	inner swrcache.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

// New starts workers goroutines (at least one) draining a queue of qlen
// events (defaultQueue when qlen <= 0).
func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	workers = max(workers, 1)
	if qlen <= 0 {
		qlen = defaultQueue
	}
	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for range workers {
		go h.work()
	}
	return h
}

func (h *Hooks) work() {
	defer h.wg.Done()
	for ev := range h.q {
		ev()
	}
}

// Close delivers what is already queued, then stops the workers.
// Safe to call more than once.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped is the number of events discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) enqueue(ev func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.closed {
		select {
		case h.q <- ev:
			return
		default:
		}
	}
	h.dropped.Add(1)
}

func (h *Hooks) SelfHeal(key, reason string) {
	h.enqueue(func() { h.inner.SelfHeal(key, reason) })
}

func (h *Hooks) ProviderSetRejected(key string) {
	h.enqueue(func() { h.inner.ProviderSetRejected(key) })
}

func (h *Hooks) FetchAbsorbed(key string, err error) {
	h.enqueue(func() { h.inner.FetchAbsorbed(key, err) })
}

func (h *Hooks) FetchFailed(key string, err error) {
	h.enqueue(func() { h.inner.FetchFailed(key, err) })
}

func (h *Hooks) StoreFault(op, key string, err error) {
	h.enqueue(func() { h.inner.StoreFault(op, key, err) })
}
