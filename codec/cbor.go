package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions configure NewCBOR.
type CBOROptions struct {
	// Deterministic selects RFC 8949 Core Deterministic encoding: equal
	// values always produce equal bytes. Otherwise map keys are unsorted.
	Deterministic bool
	// UnixTime encodes time.Time as epoch seconds instead of RFC3339Nano text.
	UnixTime bool
	// MaxNestedLevels bounds decode depth; 0 keeps the library default (32).
	MaxNestedLevels int
}

// CBOR is a compact binary Codec backed by fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	if opts.UnixTime {
		eo.Time = cbor.TimeUnix
	}
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{MaxNestedLevels: opts.MaxNestedLevels}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error. Meant for package-level variables.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
