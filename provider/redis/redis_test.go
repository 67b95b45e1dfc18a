package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/swrcache/provider/providertest"
)

// Runs against a real server only when SWRCACHE_REDIS_ADDR is set (e.g. localhost:6379).
func TestRedisConformance(t *testing.T) {
	addr := os.Getenv("SWRCACHE_REDIS_ADDR")
	if addr == "" {
		t.Skip("SWRCACHE_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("FlushDB: %v", err)
	}
	p, err := New(Config{Client: client, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })
	providertest.TestProvider(t, p)
}

func TestRedisNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestRedisUnreachableIsAFault(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	p, err := New(Config{Client: client, CloseClient: true, OpTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "swr:r1:orders"); err == nil || ok {
		t.Fatalf("Get on dead server: ok=%v err=%v, want a fault", ok, err)
	}
	if ok, err := p.Set(ctx, "swr:r1:orders", []byte("x"), 1, time.Minute); err == nil || ok {
		t.Fatalf("Set on dead server: ok=%v err=%v, want a fault", ok, err)
	}
	if err := p.Del(ctx, "swr:r1:orders"); err == nil {
		t.Fatalf("Del on dead server: want a fault")
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRedisBorrowedClientStaysOpen(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	p, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = p.Close(context.Background())
	if err := client.Close(); err != nil {
		t.Fatalf("client was closed by a provider that did not own it: %v", err)
	}
}
