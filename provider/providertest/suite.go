// Package providertest is a conformance suite for provider.Provider implementations.
package providertest

import (
	"bytes"
	"context"
	"sync"
	"testing"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

// TestProvider runs the contract every swrcache store must honor.
// p must start empty and is not closed by the suite.
func TestProvider(t *testing.T, p pr.Provider) {
	t.Run("MissOnEmpty", func(t *testing.T) { testMiss(t, p) })
	t.Run("ByteTransparent", func(t *testing.T) { testByteTransparent(t, p) })
	t.Run("LastWriterWins", func(t *testing.T) { testOverwrite(t, p) })
	t.Run("DelIdempotent", func(t *testing.T) { testDel(t, p) })
	t.Run("KeyIsolation", func(t *testing.T) { testIsolation(t, p) })
	t.Run("ConcurrentAccess", func(t *testing.T) { testConcurrent(t, p) })
}

func testMiss(t *testing.T, p pr.Provider) {
	b, ok, err := p.Get(context.Background(), "pt:missing")
	if err != nil || ok || b != nil {
		t.Fatalf("Get(missing): got (%q, %v, %v), want (nil, false, nil)", b, ok, err)
	}
}

func testByteTransparent(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	payloads := [][]byte{
		[]byte(`{"data":{"total":5},"timestamp":1700000000000,"version":"1"}`),
		{0x00, 0xff, 0x10, 0x80},
		bytes.Repeat([]byte("m"), 4096),
	}
	for i, in := range payloads {
		key := "pt:bytes:" + string(rune('a'+i))
		if _, err := p.Set(ctx, key, in, 1, 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
		got, ok, err := p.Get(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Get(%s): ok=%v err=%v", key, ok, err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("Get(%s): bytes changed", key)
		}
	}
}

func testOverwrite(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	if _, err := p.Set(ctx, "pt:ow", []byte("old"), 1, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := p.Set(ctx, "pt:ow", []byte("new"), 1, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := p.Get(ctx, "pt:ow")
	if err != nil || !ok || string(got) != "new" {
		t.Fatalf("Get after overwrite: got (%q, %v, %v)", got, ok, err)
	}
}

func testDel(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	if err := p.Del(ctx, "pt:never-set"); err != nil {
		t.Fatalf("Del(missing): %v", err)
	}
	if _, err := p.Set(ctx, "pt:del", []byte("x"), 1, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Del(ctx, "pt:del"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "pt:del"); err != nil {
		t.Fatalf("second Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "pt:del"); ok {
		t.Fatalf("key still present after Del")
	}
}

func testIsolation(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	keys := []string{"pt:r1:orders", "pt:r1:stats", "pt:r2:orders"}
	for _, k := range keys {
		if _, err := p.Set(ctx, k, []byte(k), 1, 0); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := p.Del(ctx, keys[0]); err != nil {
		t.Fatalf("Del: %v", err)
	}
	for _, k := range keys[1:] {
		got, ok, err := p.Get(ctx, k)
		if err != nil || !ok || string(got) != k {
			t.Fatalf("Get(%s) after deleting %s: got (%q, %v, %v)", k, keys[0], got, ok, err)
		}
	}
}

func testConcurrent(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := "pt:conc"
			for j := 0; j < 50; j++ {
				_, _ = p.Set(ctx, k, []byte{byte(i), byte(j)}, 1, 0)
				_, _, _ = p.Get(ctx, k)
			}
		}(i)
	}
	wg.Wait()
	got, ok, err := p.Get(ctx, "pt:conc")
	if err != nil || !ok || len(got) != 2 {
		t.Fatalf("Get after concurrent writes: got (%v, %v, %v)", got, ok, err)
	}
}
