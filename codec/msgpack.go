package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack encodes V with vmihailenco/msgpack. Usable as the zero value.
// Stored entries carry its bytes base64-encoded in "data"; field names follow
// `msgpack:"..."` tags.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}
