// Package sloghooks reports swrcache events through log/slog.
//
// Keys embed the scope (usually a restaurant id), so by default the whole key
// is logged as a short hash; Options.Redact replaces that. The entity type is
// logged in clear as its own attribute.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Log every Nth event of the noisy kinds. 0 or 1 logs all.
	SelfHealEvery      uint64
	FetchAbsorbedEvery uint64

	// Redact maps a storage key to what gets logged. Defaults to a short
	// SHA-256 prefix.
	Redact func(key string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	healed   atomic.Uint64
	absorbed atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) SelfHeal(key, reason string) {
	if every(h.opts.SelfHealEvery, &h.healed) {
		h.emit(slog.LevelDebug, "swrcache.self_heal", key, slog.String("reason", reason))
	}
}

func (h *Hooks) StoreFault(op, key string, err error) {
	h.emit(slog.LevelWarn, "swrcache.store_fault", key, slog.String("op", op), slog.Any("err", err))
}

func (h *Hooks) ProviderSetRejected(key string) {
	h.emit(slog.LevelWarn, "swrcache.provider_set_rejected", key)
}

func (h *Hooks) FetchAbsorbed(key string, err error) {
	if every(h.opts.FetchAbsorbedEvery, &h.absorbed) {
		h.emit(slog.LevelInfo, "swrcache.fetch_absorbed", key, slog.Any("err", err))
	}
}

func (h *Hooks) FetchFailed(key string, err error) {
	h.emit(slog.LevelWarn, "swrcache.fetch_failed", key, slog.Any("err", err))
}

func (h *Hooks) emit(level slog.Level, msg, key string, attrs ...slog.Attr) {
	if h.l == nil {
		return
	}
	base := []slog.Attr{slog.String("key", h.redact(key))}
	if e := entityOf(key); e != "" {
		base = append(base, slog.String("entity", e))
	}
	h.l.LogAttrs(context.Background(), level, msg, append(base, attrs...)...)
}

func (h *Hooks) redact(key string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(key)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// entityOf returns the last key segment, which the manager never escapes for
// the built-in entity types.
func entityOf(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return ""
	}
	return key[i+1:]
}

func every(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}
