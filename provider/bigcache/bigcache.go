// Package bigcache keeps entries in an in-process allegro/bigcache.
//
// bigcache has one LifeWindow for every entry, so per-Set TTLs are ignored.
// Freshness is still enforced by the manager against each entry's timestamp;
// LifeWindow only has to outlive the longest entity TTL.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const (
	defaultLifeWindow = 24 * time.Hour
	// Upper bound on bigcache's per-entry bookkeeping (timestamp, hash,
	// key length and the queue's length prefix).
	entryOverhead = 32
)

type Provider struct {
	c *bc.BigCache
	// maxEntry is the largest entry a shard can hold; 0 when unbounded.
	maxEntry int
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 24h
	CleanWindow        time.Duration // 0 => expired entries linger until overwritten
	Shards             int           // power of two; 0 => bigcache default
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // 0 => unbounded
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.CleanWindow = cfg.CleanWindow
	conf.Verbose = false
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}

	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	p := &Provider{c: c}
	if conf.HardMaxCacheSize > 0 {
		p.maxEntry = conf.HardMaxCacheSize << 20 / conf.Shards
	}
	return p, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	switch {
	case errors.Is(err, bc.ErrEntryNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// Set declines (ok=false) an entry too large for a shard instead of failing,
// so a large menu is reported as rejected rather than as a store fault.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if p.maxEntry > 0 && len(key)+len(value)+entryOverhead > p.maxEntry {
		return false, nil
	}
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
