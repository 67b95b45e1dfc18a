package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type stats struct {
	Total   int     `json:"total" cbor:"total" msgpack:"total"`
	Revenue float64 `json:"revenue" cbor:"revenue" msgpack:"revenue"`
}

func TestJSONUseNumber(t *testing.T) {
	c := JSON[map[string]any]{UseNumber: true}
	v, err := c.Decode([]byte(`{"id":9007199254740993}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n, ok := v["id"].(json.Number)
	if !ok || n.String() != "9007199254740993" {
		t.Fatalf("expected exact json.Number, got %T %v", v["id"], v["id"])
	}
}

func TestBinaryCodecsKeepValues(t *testing.T) {
	in := stats{Total: 5, Revenue: 12.5}

	cb := MustCBOR[stats](CBOROptions{Deterministic: true})
	b, err := cb.Encode(in)
	if err != nil {
		t.Fatalf("cbor Encode: %v", err)
	}
	if got, err := cb.Decode(b); err != nil || got != in {
		t.Fatalf("cbor Decode: got=%v err=%v", got, err)
	}
	b2, _ := cb.Encode(in)
	if !bytes.Equal(b, b2) {
		t.Fatalf("deterministic CBOR produced different bytes")
	}

	mp := Msgpack[stats]{}
	b, err = mp.Encode(in)
	if err != nil {
		t.Fatalf("msgpack Encode: %v", err)
	}
	if got, err := mp.Decode(b); err != nil || got != in {
		t.Fatalf("msgpack Decode: got=%v err=%v", got, err)
	}
}

func TestProtobufCodecs(t *testing.T) {
	pb := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := pb.Encode(wrapperspb.String("margherita"))
	if err != nil {
		t.Fatalf("proto Encode: %v", err)
	}
	got, err := pb.Decode(b)
	if err != nil || got.GetValue() != "margherita" {
		t.Fatalf("proto Decode: got=%v err=%v", got, err)
	}

	pj := NewProtoJSON(func() *structpb.Struct { return &structpb.Struct{} })
	msg, err := structpb.NewStruct(map[string]any{"open": true, "tables": 12.0})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	b, err = pj.Encode(msg)
	if err != nil {
		t.Fatalf("protojson Encode: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("protojson output is not JSON: %s", b)
	}
	back, err := pj.Decode(b)
	if err != nil {
		t.Fatalf("protojson Decode: %v", err)
	}
	if back.GetFields()["open"].GetBoolValue() != true || back.GetFields()["tables"].GetNumberValue() != 12 {
		t.Fatalf("protojson Decode mismatch: %v", back)
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("toolong")); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	if v, err := c.Decode([]byte("ok")); err != nil || v != "ok" {
		t.Fatalf("small payload: v=%q err=%v", v, err)
	}

	unlimited := LimitCodec[string]{Inner: String{}}
	if _, err := unlimited.Decode([]byte(strings.Repeat("x", 1<<16))); err != nil {
		t.Fatalf("MaxDecode=0 must disable the limit: %v", err)
	}
}

func TestCBOROptions(t *testing.T) {
	if _, err := NewCBOR[stats](CBOROptions{MaxNestedLevels: 1}); err == nil {
		t.Fatalf("expected invalid MaxNestedLevels to be rejected")
	}

	type stamped struct{ At time.Time }
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	text := MustCBOR[stamped](CBOROptions{})
	unix := MustCBOR[stamped](CBOROptions{UnixTime: true})
	bt, _ := text.Encode(stamped{At: at})
	bu, _ := unix.Encode(stamped{At: at})
	if len(bu) >= len(bt) {
		t.Fatalf("unix time should encode smaller than RFC3339 text: %d >= %d", len(bu), len(bt))
	}
	got, err := unix.Decode(bu)
	if err != nil || !got.At.Equal(at) {
		t.Fatalf("unix Decode: got=%v err=%v", got.At, err)
	}
}
