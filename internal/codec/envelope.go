package codec

import (
	"encoding/binary"
	"fmt"
)

// Envelope is the wire shape of one routed peer message: enough to
// demultiplex it back to the right computation, protocol node, and round
// (spec §4.3 "Drive": "matched to (computation_id, protocol_address,
// round)") without the receiver needing to understand the message body's
// own encoding.
type Envelope struct {
	ComputationID string
	AddressIndex  int
	AddressType   byte // mirrors bytecode.AddressType's small enum
	From          string
	Round         int
	Tag           byte // mirrors statemachine.Tag
	Body          []byte
}

// EncodeEnvelope serialises e as a sequence of varint-length-prefixed
// fields, in struct-declaration order. Every variable-width field (the two
// strings and the body) is length-prefixed rather than null-terminated so
// arbitrary bytes — including those produced by
// internal/statemachine.EncodeElement, which has no reserved terminator —
// round-trip exactly.
func EncodeEnvelope(e Envelope) []byte {
	buf := make([]byte, 0, 32+len(e.ComputationID)+len(e.From)+len(e.Body))
	buf = appendString(buf, e.ComputationID)
	buf = appendVarint(buf, int64(e.AddressIndex))
	buf = append(buf, e.AddressType)
	buf = appendString(buf, e.From)
	buf = appendVarint(buf, int64(e.Round))
	buf = append(buf, e.Tag)
	buf = appendBytes(buf, e.Body)
	return buf
}

// DecodeEnvelope is EncodeEnvelope's inverse.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	var ok bool
	var err error

	if e.ComputationID, b, ok = takeString(b); !ok {
		return Envelope{}, fmt.Errorf("%w: computation id", ErrTruncated)
	}
	var idx int64
	if idx, b, err = takeVarint(b); err != nil {
		return Envelope{}, fmt.Errorf("%w: address index: %v", ErrTruncated, err)
	}
	e.AddressIndex = int(idx)
	if len(b) < 1 {
		return Envelope{}, fmt.Errorf("%w: address type", ErrTruncated)
	}
	e.AddressType, b = b[0], b[1:]
	if e.From, b, ok = takeString(b); !ok {
		return Envelope{}, fmt.Errorf("%w: sender", ErrTruncated)
	}
	var round int64
	if round, b, err = takeVarint(b); err != nil {
		return Envelope{}, fmt.Errorf("%w: round: %v", ErrTruncated, err)
	}
	e.Round = int(round)
	if len(b) < 1 {
		return Envelope{}, fmt.Errorf("%w: tag", ErrTruncated)
	}
	e.Tag, b = b[0], b[1:]
	if e.Body, _, ok = takeBytes(b); !ok {
		return Envelope{}, fmt.Errorf("%w: body", ErrTruncated)
	}
	return e, nil
}

func appendVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func takeVarint(b []byte) (int64, []byte, error) {
	v, n := binary.Varint(b)
	if n <= 0 {
		return 0, nil, fmt.Errorf("malformed varint")
	}
	return v, b[n:], nil
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func takeString(b []byte) (string, []byte, bool) {
	raw, rest, ok := takeBytes(b)
	if !ok {
		return "", nil, false
	}
	return string(raw), rest, true
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = appendVarint(buf, int64(len(v)))
	return append(buf, v...)
}

func takeBytes(b []byte) ([]byte, []byte, bool) {
	n, rest, err := takeVarint(b)
	if err != nil || n < 0 || int64(len(rest)) < n {
		return nil, nil, false
	}
	return rest[:n], rest[n:], true
}
