// Package codec serializes cache entry envelopes for storage.
//
// A Codec encodes the whole envelope, not just the payload, so every codec
// must honor the envelope's field names ("data", "timestamp", "ttl", "key",
// "version"). The JSON codec is the default and produces the layout other
// clients of the same store expect.
package codec

// Codec encodes/decodes values to []byte for storage.
// Unmarshal must ignore fields it does not know so that header-only decodes work.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}
