// Package ristretto keeps entries in an in-process dgraph-io/ristretto
// cache. Admission is cost based, so a Set may be declined under pressure.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

// Config mirrors the ristretto knobs swrcache cares about. Costs come from
// Options.ComputeSetCost; with the default every entry costs 1 and MaxCost
// is an item count.
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig sizes the cache for roughly maxItems entries of cost 1.
func DefaultConfig(maxItems int64) Config {
	return Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	}
}

func New(cfg Config) (*Provider, error) {
	switch {
	case cfg.NumCounters <= 0:
		return nil, errors.New("ristretto: NumCounters must be positive")
	case cfg.MaxCost <= 0:
		return nil, errors.New("ristretto: MaxCost must be positive")
	case cfg.BufferItems <= 0:
		return nil, errors.New("ristretto: BufferItems must be positive")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set stores a private copy of value and waits for the write buffer to drain
// so a Load that follows a revalidation reads the new entry.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	own := append([]byte(nil), value...)
	if !p.c.SetWithTTL(key, own, cost, ttl) {
		return false, nil
	}
	p.c.Wait()
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Stats is a snapshot of ristretto's counters. Zero unless Config.Metrics.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Rejected uint64
	HitRatio float64
}

func (p *Provider) Stats() Stats {
	m := p.c.Metrics
	if m == nil {
		return Stats{}
	}
	return Stats{
		Hits:     m.Hits(),
		Misses:   m.Misses(),
		Rejected: m.SetsRejected(),
		HitRatio: m.Ratio(),
	}
}
