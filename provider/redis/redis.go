// Package redis keeps entries in Redis so every process pointed at the same
// deployment shares one cache. Concurrent writers follow Redis semantics:
// the last SET wins.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb     goredis.UniversalClient
	owned   bool
	timeout time.Duration
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// CloseClient hands ownership of Client to the provider.
	CloseClient bool
	// OpTimeout bounds each Get/Set/Del. A slow store then reads as a
	// fault and the load carries on from the network. 0 means no bound.
	OpTimeout time.Duration
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, owned: cfg.CloseClient, timeout: cfg.OpTimeout}, nil
}

// NewFromURL dials a redis:// or rediss:// URL, checks it with PING and
// owns the client.
func NewFromURL(ctx context.Context, url string) (*Redis, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{rdb: client, owned: true}, nil
}

func (p *Redis) op(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := p.op(ctx)
	defer cancel()
	b, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// Set never reports a rejection; Redis either stores the value or fails.
func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	ctx, cancel := p.op(ctx)
	defer cancel()
	if err := p.rdb.Set(ctx, key, value, max(ttl, 0)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	ctx, cancel := p.op(ctx)
	defer cancel()
	return p.rdb.Del(ctx, key).Err()
}

// Close closes the client only if the provider owns it. Repeated calls are no-ops.
func (p *Redis) Close(context.Context) error {
	if !p.owned {
		return nil
	}
	if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
