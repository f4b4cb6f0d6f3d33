package util

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON returns a deterministic JSON serialization of v: object keys
// are sorted at every depth, so two filters that differ only in field or map
// order produce the same string.
func CanonicalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // keep integers exact
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}
	// encoding/json writes map keys in sorted order
	out, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
