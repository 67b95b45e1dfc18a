package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrCorrupt = errors.New("swrcache: corrupt entry")

const encBase64 = "base64"

// Entry is the decoded form of a stored cache entry.
type Entry struct {
	Payload   []byte // codec output
	Timestamp int64  // unix milliseconds at write time
	Version   string // schema version of the writer
}

// Persisted layout:
//
//	{"data": <payload>, "timestamp": <ms>, "version": "<v>"}
//
// data holds the payload verbatim when it is valid, compact JSON. Anything
// else is stored as a base64 string and flagged with "encoding":"base64", so
// Decode always returns the exact bytes given to Encode.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"`
	Version   *string         `json:"version"`
	Encoding  string          `json:"encoding,omitempty"`
}

func Encode(e Entry) ([]byte, error) {
	env := envelope{Timestamp: &e.Timestamp, Version: &e.Version}
	if embeddable(e.Payload) {
		env.Data = e.Payload
	} else {
		s, err := json.Marshal(base64.StdEncoding.EncodeToString(e.Payload))
		if err != nil {
			return nil, err
		}
		env.Data = s
		env.Encoding = encBase64
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func embeddable(p []byte) bool {
	if len(p) == 0 || !json.Valid(p) {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, p); err != nil {
		return false
	}
	return bytes.Equal(buf.Bytes(), p)
}

func Decode(b []byte) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Entry{}, ErrCorrupt
	}
	if env.Data == nil || env.Timestamp == nil || env.Version == nil {
		return Entry{}, ErrCorrupt
	}

	e := Entry{Timestamp: *env.Timestamp, Version: *env.Version}
	switch env.Encoding {
	case "":
		e.Payload = env.Data
	case encBase64:
		var s string
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return Entry{}, ErrCorrupt
		}
		p, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Entry{}, ErrCorrupt
		}
		e.Payload = p
	default:
		return Entry{}, ErrCorrupt
	}
	return e, nil
}
