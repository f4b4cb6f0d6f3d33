package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// IDKind tells how an ID arrived over the wire.
type IDKind uint8

const (
	IDPlain  IDKind = iota // "abc"
	IDNested               // {"id": "abc"} or {"_id": "abc"}
)

var ErrInvalidID = errors.New("catalog: invalid id")

// ID is an entity identifier. The API returns ids either as plain strings or
// numbers, or wrapped in an object under "id" or "_id"; both normalize to the
// same Canonical string, which is what maps and cache keys use.
type ID struct {
	Kind  IDKind
	Value string
	Field string // wrapping field for IDNested
}

// NewID returns a plain id.
func NewID(v string) ID { return ID{Kind: IDPlain, Value: v} }

func (id ID) Canonical() string       { return id.Value }
func (id ID) CacheIdentifier() string { return id.Value }
func (id ID) String() string          { return id.Value }
func (id ID) IsZero() bool            { return id.Value == "" }

// Equal compares canonical forms.
func (id ID) Equal(o ID) bool { return id.Value == o.Value }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.Kind == IDNested {
		f := id.Field
		if f == "" {
			f = "id"
		}
		return json.Marshal(map[string]string{f: id.Value})
	}
	return json.Marshal(id.Value)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NewID(s)
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		for _, f := range []string{"id", "_id"} {
			raw, ok := obj[f]
			if !ok {
				continue
			}
			var inner ID
			if err := inner.UnmarshalJSON(raw); err != nil {
				return err
			}
			*id = ID{Kind: IDNested, Value: inner.Value, Field: f}
			return nil
		}
		return fmt.Errorf("%w: object without id or _id", ErrInvalidID)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidID, strings.TrimSpace(string(b)))
		}
		*id = NewID(n.String())
		return nil
	}
}
