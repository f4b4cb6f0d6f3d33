package codec

import "fmt"

// ByName returns the codec registered under name ("json", "msgpack", "cbor",
// "cbor-det", "proto"). An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	case "cbor":
		return NewCBOR(false)
	case "cbor-det":
		return NewCBOR(true)
	case "proto":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
