// Package wire defines the persisted entry envelope:
//
//	{"data": <T>, "timestamp": <epoch ms>, "ttl": <ms>, "key": <key>, "version": <schema>}
//
// The header is decodable without knowing T, which lets eviction and version
// checks run over entries of any type.
package wire

import (
	"errors"
	"time"

	"github.com/unkn0wn-root/cellarcache/codec"
)

var ErrCorrupt = errors.New("cellarcache: corrupt entry")

// Header is the type-independent part of an entry.
type Header struct {
	Timestamp int64  `json:"timestamp"`
	TTL       int64  `json:"ttl"`
	Key       string `json:"key"`
	Version   string `json:"version"`
}

// Entry is a full envelope. Fields are repeated instead of embedding Header so
// every codec sees the same flat layout.
type Entry[T any] struct {
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
	TTL       int64  `json:"ttl"`
	Key       string `json:"key"`
	Version   string `json:"version"`
}

func NewEntry[T any](key string, data T, now time.Time, ttl time.Duration, version string) Entry[T] {
	return Entry[T]{
		Data:      data,
		Timestamp: now.UnixMilli(),
		TTL:       ttl.Milliseconds(),
		Key:       key,
		Version:   version,
	}
}

func (e Entry[T]) Header() Header {
	return Header{Timestamp: e.Timestamp, TTL: e.TTL, Key: e.Key, Version: e.Version}
}

func Encode[T any](c codec.Codec, e Entry[T]) ([]byte, error) {
	return c.Marshal(e)
}

// DecodeHeader reads only the header. Anything that does not look like an
// envelope (wrong shape, no key) is ErrCorrupt.
func DecodeHeader(c codec.Codec, b []byte) (Header, error) {
	var h Header
	if len(b) == 0 {
		return h, ErrCorrupt
	}
	if err := c.Unmarshal(b, &h); err != nil {
		return Header{}, errors.Join(ErrCorrupt, err)
	}
	if h.Key == "" || h.TTL < 0 {
		return Header{}, ErrCorrupt
	}
	return h, nil
}

func Decode[T any](c codec.Codec, b []byte) (Entry[T], error) {
	var e Entry[T]
	if err := c.Unmarshal(b, &e); err != nil {
		return Entry[T]{}, errors.Join(ErrCorrupt, err)
	}
	return e, nil
}

// Age returns how long ago the entry was written. A timestamp in the future
// (clock moved backwards) counts as age 0.
func (h Header) Age(now time.Time) time.Duration {
	age := now.Sub(time.UnixMilli(h.Timestamp))
	if age < 0 {
		return 0
	}
	return age
}

func (h Header) TTLDuration() time.Duration {
	return time.Duration(h.TTL) * time.Millisecond
}
