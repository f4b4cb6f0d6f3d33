package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cellarcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	StoreErrorEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	storeErrorCtr atomic.Uint64
}

var _ cellarcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cellarcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil || !sample(h.opts.StoreErrorEvery, &h.storeErrorCtr) {
		return
	}
	h.l.Warn("cellarcache.store_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) Evicted(count int, freedBytes int64, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("cellarcache.evicted",
		"count", count,
		"freed_bytes", freedBytes,
		"reason", reason)
}

func (h *Hooks) RevalidateFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cellarcache.revalidate_failed",
		"key", h.redact(storageKey),
		"err", err)
}
