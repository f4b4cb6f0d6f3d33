package codec

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto stores values as binary google.protobuf.Value messages, for stores
// shared with services that speak protobuf. Values pass through their JSON
// form, so numbers are float64 on the wire (integers above 2^53 lose precision).
// The zero value is ready to use.
type Proto struct{}

var _ Codec = Proto{}

func (Proto) Name() string { return "proto" }

func (Proto) Marshal(v any) ([]byte, error) {
	j, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(j, &generic); err != nil {
		return nil, err
	}
	pv, err := structpb.NewValue(generic)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pv)
}

func (Proto) Unmarshal(b []byte, v any) error {
	var pv structpb.Value
	if err := proto.Unmarshal(b, &pv); err != nil {
		return err
	}
	j, err := json.Marshal(pv.AsInterface())
	if err != nil {
		return err
	}
	return json.Unmarshal(j, v)
}
