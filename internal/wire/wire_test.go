package wire

import (
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/cellarcache/codec"
)

type card struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

func allCodecs() []codec.Codec {
	return []codec.Codec{codec.JSON{}, codec.Msgpack{}, codec.MustCBOR(false), codec.MustCBOR(true), codec.Proto{}}
}

func TestEnvelopeAcrossCodecs(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	in := NewEntry("cellar:card:abc", card{ID: "abc", Name: "Barolo", Rating: 4.5}, now, 10*time.Minute, "1.0.0")

	for _, c := range allCodecs() {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := Encode(c, in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			h, err := DecodeHeader(c, b)
			if err != nil {
				t.Fatalf("header: %v", err)
			}
			if h != in.Header() {
				t.Fatalf("header=%+v want %+v", h, in.Header())
			}
			out, err := Decode[card](c, b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out != in {
				t.Fatalf("entry=%+v want %+v", out, in)
			}
		})
	}
}

func TestJSONLayout(t *testing.T) {
	e := NewEntry("ns:user:me", "x", time.UnixMilli(5), time.Second, "1.0.0")
	b, err := Encode(codec.JSON{}, e)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"data":"x","timestamp":5,"ttl":1000,"key":"ns:user:me","version":"1.0.0"}`
	if string(b) != want {
		t.Fatalf("layout=%s\nwant   %s", b, want)
	}
}

func TestDecodeHeaderRejectsNonEnvelopes(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("not-json"),
		"string":    []byte(`"hello"`),
		"null":      []byte(`null`),
		"no key":    []byte(`{"timestamp":1,"ttl":1,"version":"1.0.0"}`),
		"bad ttl":   []byte(`{"timestamp":1,"ttl":-5,"key":"k","version":"1.0.0"}`),
		"truncated": []byte(`{"timestamp":1,"ttl":1,"key":"k"`),
	}
	for name, b := range cases {
		if _, err := DecodeHeader(codec.JSON{}, b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestAgeClampsFutureTimestamps(t *testing.T) {
	h := Header{Timestamp: 2000}
	if got := h.Age(time.UnixMilli(1000)); got != 0 {
		t.Fatalf("age=%v want 0", got)
	}
	if got := h.Age(time.UnixMilli(2501)); got != 501*time.Millisecond {
		t.Fatalf("age=%v want 501ms", got)
	}
}
