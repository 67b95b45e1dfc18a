// Package codec converts cached payloads to and from bytes.
//
// The cache envelope is JSON. Codecs whose output is valid JSON (JSON,
// ProtoJSON) are embedded as-is; binary codecs (CBOR, Msgpack, Protobuf)
// are carried base64-encoded.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
