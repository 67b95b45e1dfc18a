package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeysByDefault(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{})

	h.StoreFault("get", "swr:restaurant-42:orders", errors.New("timeout"))

	out := buf.String()
	if strings.Contains(out, "restaurant-42") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "swrcache.store_fault") || !strings.Contains(out, "op=get") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{Redact: func(k string) string { return "K" }})
	h.FetchFailed("swr:r1:menu", errors.New("502"))
	if !strings.Contains(buf.String(), "key=K") {
		t.Fatalf("custom redactor not used: %s", buf.String())
	}
}

func TestSelfHealSampling(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{SelfHealEvery: 3})
	for i := 0; i < 9; i++ {
		h.SelfHeal("swr:r1:orders", "expired")
	}
	if n := strings.Count(buf.String(), "swrcache.self_heal"); n != 3 {
		t.Fatalf("expected 3 sampled lines, got %d", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.SelfHeal("k", "corrupt")
	h.StoreFault("set", "k", errors.New("x"))
	h.ProviderSetRejected("k")
	h.FetchAbsorbed("k", errors.New("x"))
	h.FetchFailed("k", errors.New("x"))
}

func TestEntityLoggedInClear(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{})
	h.ProviderSetRejected("swr:restaurant-42:menu")
	if !strings.Contains(buf.String(), "entity=menu") {
		t.Fatalf("entity missing: %s", buf.String())
	}
	buf.Reset()
	h.ProviderSetRejected("nocolon")
	if strings.Contains(buf.String(), "entity=") {
		t.Fatalf("unexpected entity attr: %s", buf.String())
	}
}
