// Package transport streams engine frames to out-of-process renderers over
// NNG PUB/SUB sockets.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/golang/snappy"
)

// ErrBadMessage is returned for a message without a known frame prefix
var ErrBadMessage = errors.New("transport: malformed frame message")

// NNG has no native topics, so every message carries a prefix the SUB side
// filters on. Both prefixes start with Topic.
const (
	Topic = "FRAME"

	prefixPlain  = "FRAME:"
	prefixSnappy = "FRAMEZ:"
)

// Encoding names used in metrics
const (
	EncodingJSON   = "json"
	EncodingSnappy = "snappy"
)

// Encode serializes a frame into one message, snappy-compressed when compress is set
func Encode(f engine.Frame, compress bool) ([]byte, error) {
	return AppendEncode(nil, f, compress)
}

// AppendEncode appends the encoded message for f to dst and returns the
// extended slice
func AppendEncode(dst []byte, f engine.Frame, compress bool) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return dst, fmt.Errorf("failed to marshal frame: %w", err)
	}
	if !compress {
		dst = append(dst, prefixPlain...)
		return append(dst, data...), nil
	}

	dst = append(dst, prefixSnappy...)
	start := len(dst)
	need := start + snappy.MaxEncodedLen(len(data))
	if cap(dst) < need {
		grown := make([]byte, start, need)
		copy(grown, dst)
		dst = grown
	}
	encoded := snappy.Encode(dst[start:need], data)
	return dst[:start+len(encoded)], nil
}

// Decode parses a message produced by Encode
func Decode(msg []byte) (engine.Frame, error) {
	var (
		f    engine.Frame
		data []byte
	)
	switch {
	case bytes.HasPrefix(msg, []byte(prefixSnappy)):
		decoded, err := snappy.Decode(nil, msg[len(prefixSnappy):])
		if err != nil {
			return f, fmt.Errorf("failed to decompress frame: %w", err)
		}
		data = decoded
	case bytes.HasPrefix(msg, []byte(prefixPlain)):
		data = msg[len(prefixPlain):]
	default:
		return f, ErrBadMessage
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	return f, nil
}

// EncodingOf reports the metrics label for a message
func EncodingOf(msg []byte) string {
	if bytes.HasPrefix(msg, []byte(prefixSnappy)) {
		return EncodingSnappy
	}
	return EncodingJSON
}
