package codec

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Protobuf encodes messages in the binary wire format.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *menupb.Menu { return &menupb.Menu{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// ProtoJSON encodes messages with protojson, so they embed in the entry
// envelope as readable JSON instead of base64.
type ProtoJSON[T proto.Message] struct {
	new func() T
	mo  protojson.MarshalOptions
	uo  protojson.UnmarshalOptions
}

func NewProtoJSON[T proto.Message](ctor func() T) ProtoJSON[T] {
	return ProtoJSON[T]{
		new: ctor,
		uo:  protojson.UnmarshalOptions{DiscardUnknown: true},
	}
}

func (c ProtoJSON[T]) Encode(v T) ([]byte, error) {
	return c.mo.Marshal(v)
}
func (c ProtoJSON[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := c.uo.Unmarshal(b, m)
	return m, err
}
