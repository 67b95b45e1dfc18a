package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/hooks/async"
	swrlogrus "github.com/unkn0wn-root/swrcache/log/logrus"
	swrslog "github.com/unkn0wn-root/swrcache/log/slog"
	swrzap "github.com/unkn0wn-root/swrcache/log/zap"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/provider/bigcache"
	"github.com/unkn0wn-root/swrcache/provider/memory"
	"github.com/unkn0wn-root/swrcache/provider/redis"
	"github.com/unkn0wn-root/swrcache/provider/ristretto"
	"github.com/unkn0wn-root/swrcache/provider/sqlite"
	"github.com/unkn0wn-root/swrcache/sloghooks"
)

const (
	ristrettoMaxItems = 10_000
	maxPayloadBytes   = 8 << 20
)

func openProvider(ctx context.Context, cfg config) (pr.Provider, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		p, err := sqlite.New(ctx, sqlite.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "redis":
		p, err := redis.NewFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisURL, err)
		}
		return p, nil
	case "bigcache":
		p, err := bigcache.New(ctx, bigcache.Config{})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ristretto":
		p, err := ristretto.New(ristretto.DefaultConfig(ristrettoMaxItems))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newLogger returns the cache logger and a flush func to call before exit.
func newLogger(cfg config, w io.Writer) (swrcache.Logger, func(), error) {
	switch cfg.LogFormat {
	case "", "none":
		return swrcache.NopLogger{}, func() {}, nil
	case "zap":
		zc := zap.NewProductionConfig()
		if cfg.Verbose {
			zc = zap.NewDevelopmentConfig()
		}
		zc.OutputPaths = []string{"stderr"}
		l, err := zc.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("zap: %w", err)
		}
		return swrzap.ZapLogger{L: l}, func() { _ = l.Sync() }, nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		if cfg.Verbose {
			l.SetLevel(logrus.DebugLevel)
		}
		return swrlogrus.New(l), func() {}, nil
	case "slog":
		return swrslog.Logger{L: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(cfg)}))}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
}

func slogLevel(cfg config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// newHooks reports cache events as slog lines off the hot path.
func newHooks(cfg config, w io.Writer) (swrcache.Hooks, func()) {
	if !cfg.Hooks {
		return swrcache.NopHooks{}, func() {}
	}
	sink := sloghooks.New(slog.New(slog.NewTextHandler(w, nil)), sloghooks.Options{})
	h := async.New(sink, 1, 256)
	return h, h.Close
}

// openFence returns nil unless --fence is set. Redis-backed caches keep
// generations next to the entries so every process sees the same fence.
func openFence(cfg config) (genstore.Store, func(), error) {
	if !cfg.Fence {
		return nil, func() {}, nil
	}
	if cfg.Backend != "redis" {
		return genstore.NewLocal(0, 0), func() {}, nil
	}
	opt, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisURL, err)
	}
	client := goredis.NewClient(opt)
	ns := cfg.Namespace
	if ns == "" {
		ns = "swr"
	}
	return genstore.NewRedis(client, ns, 0), func() { _ = client.Close() }, nil
}

// newManager builds a manager for raw JSON payloads. The returned func
// closes the provider and flushes logs and hooks.
func newManager(ctx context.Context, cfg config, logw io.Writer) (swrcache.Manager[json.RawMessage], func(), error) {
	p, err := openProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger, flush, err := newLogger(cfg, logw)
	if err != nil {
		_ = p.Close(ctx)
		return nil, nil, err
	}
	fence, closeFence, err := openFence(cfg)
	if err != nil {
		flush()
		_ = p.Close(ctx)
		return nil, nil, err
	}
	hooks, stopHooks := newHooks(cfg, logw)

	m, err := swrcache.New[json.RawMessage](swrcache.Options[json.RawMessage]{
		Provider:      p,
		Codec:         codec.LimitCodec[json.RawMessage]{Inner: codec.JSON[json.RawMessage]{}, MaxDecode: maxPayloadBytes},
		Namespace:     cfg.Namespace,
		SchemaVersion: cfg.SchemaVersion,
		TTLs:          cfg.TTLs,
		RetainFor:     cfg.RetainFor,
		Dedupe:        cfg.Dedupe,
		Fence:         fence,
		Logger:        logger,
		Hooks:         hooks,
	})
	if err != nil {
		stopHooks()
		closeFence()
		flush()
		_ = p.Close(ctx)
		return nil, nil, err
	}
	return m, func() {
		_ = m.Close(ctx)
		closeFence()
		stopHooks()
		flush()
	}, nil
}
