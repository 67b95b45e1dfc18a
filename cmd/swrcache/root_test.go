package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/genstore"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, defaultDSN, cfg.DSN)
	assert.Equal(t, "none", cfg.LogFormat)
	assert.False(t, cfg.Dedupe)
	assert.Empty(t, cfg.TTLs)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SWRCACHE_BACKEND", "sqlite")
	t.Setenv("SWRCACHE_SCHEMA_VERSION", "7")
	t.Setenv("SWRCACHE_DEDUPE", "true")
	t.Setenv("SWRCACHE_TTL_ORDERS", "90s")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "7", cfg.SchemaVersion)
	assert.True(t, cfg.Dedupe)
	assert.Equal(t, swrcache.TTLTable{swrcache.EntityOrders: 90 * time.Second}, cfg.TTLs)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swrcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: bigcache
log-format: slog
retain-for: 24h
ttl:
  menu: 1h
  reviews: 3m
`), 0o600))

	v := viper.New()
	v.Set("config", path)
	t.Setenv("SWRCACHE_LOG_FORMAT", "logrus") // env beats file

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "bigcache", cfg.Backend)
	assert.Equal(t, "logrus", cfg.LogFormat)
	assert.Equal(t, 24*time.Hour, cfg.RetainFor)
	assert.Equal(t, swrcache.TTLTable{swrcache.EntityMenu: time.Hour, "reviews": 3 * time.Minute}, cfg.TTLs)
	assert.Contains(t, cfg.ttlSummary(), "menu=1h0m0s")
	assert.Contains(t, cfg.ttlSummary(), "orders=5m0s")
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"backend":    {"SWRCACHE_BACKEND": "mongo"},
		"log format": {"SWRCACHE_LOG_FORMAT": "xml"},
		"zero ttl":   {"SWRCACHE_TTL_STATS": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(viper.New())
			assert.Error(t, err)
		})
	}

	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := loadConfig(v)
	assert.Error(t, err, "an explicit config file must exist")
}

func TestOpenProvider(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"memory", "sqlite", "bigcache", "ristretto"} {
		t.Run(backend, func(t *testing.T) {
			cfg := config{Backend: backend, DSN: "file:" + filepath.Join(t.TempDir(), "c.db")}
			p, err := openProvider(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = p.Close(ctx) })

			ok, err := p.Set(ctx, "swr:r1:orders", []byte("x"), 1, 0)
			require.NoError(t, err)
			require.True(t, ok)
			got, hit, err := p.Get(ctx, "swr:r1:orders")
			require.NoError(t, err)
			assert.True(t, hit)
			assert.Equal(t, []byte("x"), got)
		})
	}

	_, err := openProvider(ctx, config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestOpenFence(t *testing.T) {
	f, done, err := openFence(config{Backend: "sqlite"})
	require.NoError(t, err)
	assert.Nil(t, f)
	done()

	f, done, err = openFence(config{Backend: "memory", Fence: true})
	require.NoError(t, err)
	assert.IsType(t, &genstore.Local{}, f)
	done()

	// the client dials lazily, so no server is needed here
	f, done, err = openFence(config{Backend: "redis", Fence: true, RedisURL: defaultRedisURL})
	require.NoError(t, err)
	assert.IsType(t, &genstore.Redis{}, f)
	done()

	_, _, err = openFence(config{Backend: "redis", Fence: true, RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"logrus", "slog"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			l, flush, err := newLogger(config{LogFormat: format}, &buf)
			require.NoError(t, err)
			l.Warn("store fault; continuing without cache", swrcache.Fields{"op": "get"})
			flush()
			assert.Contains(t, buf.String(), "store fault")
			assert.Contains(t, buf.String(), "op=get")
		})
	}

	l, flush, err := newLogger(config{LogFormat: "zap"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, l)
	flush()

	l, _, err = newLogger(config{LogFormat: "none"}, nil)
	require.NoError(t, err)
	assert.IsType(t, swrcache.NopLogger{}, l)
}

type cli struct {
	t     *testing.T
	flags []string
}

func (c cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, c.flags...))
	err := root.Execute()
	return out.String(), err
}

func TestCommandsAgainstSQLite(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"n":` + strconv.Itoa(int(n.Add(1))) + `}}`))
	}))
	defer srv.Close()

	c := cli{t: t, flags: []string{
		"--backend", "sqlite",
		"--dsn", "file:" + filepath.Join(t.TempDir(), "cache.db"),
		"--api-url", srv.URL,
		"--token", "secret",
	}}

	out, err := c.run("peek", "stats", "--scope", "r1")
	require.NoError(t, err)
	assert.Equal(t, "miss\n", out)

	out, err = c.run("load", "stats", "--scope", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, `network {"n":1}`)
	assert.NotContains(t, out, "cached")

	out, err = c.run("peek", "stats", "--scope", "r1")
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n", out)

	out, err = c.run("load", "stats", "--scope", "r1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "loading start"))
	assert.Equal(t, `cached  {"n":1}`, lines[1])
	assert.Equal(t, `updated {"n":2}`, lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "loading done"))

	out, err = c.run("invalidate", "stats", "--scope", "r1")
	require.NoError(t, err)
	assert.Equal(t, "invalidated r1/stats\n", out)

	out, err = c.run("peek", "stats", "--scope", "r1")
	require.NoError(t, err)
	assert.Equal(t, "miss\n", out)
}

func TestLoadFailureWithNothingCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := cli{t: t, flags: []string{"--api-url", srv.URL, "--token", "t"}}
	out, err := c.run("load", "settings")
	require.Error(t, err)
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "404")
}

func TestLoadArgs(t *testing.T) {
	c := cli{t: t}
	_, err := c.run("load", "orders", "--api-url", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "--scope")

	_, err = c.run("load", "orders", "--scope", "r1")
	assert.ErrorContains(t, err, "--api-url")
}
