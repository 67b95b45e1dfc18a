// Package memory is an in-process Provider backed by a map.
package memory

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Provider struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

func New() *Provider { return &Provider{m: make(map[string]entry), now: time.Now} }

// NewWithClock is New with a custom clock for TTL checks.
func NewWithClock(now func() time.Time) *Provider {
	p := New()
	p.now = now
	return p
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && p.now().After(e.exp) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return clone(e.v), true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: clone(value), exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) Close(_ context.Context) error { return nil }

// Len reports the number of stored keys, expired or not.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Keys returns a snapshot of stored keys.
func (p *Provider) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
