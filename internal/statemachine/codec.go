package statemachine

import (
	"encoding/binary"
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/zeebo/blake3"
)

// EncodeElement serialises a field element to the wire body format used for
// TagField/TagShare payloads: a 4-byte big-endian length prefix followed by
// the field's fixed-width little-endian encoding (same length-then-bytes shape
// the teacher's RKGShare.MarshalBinary uses for ring polynomials).
func EncodeElement(f *field.Field, e field.Element) []byte {
	raw := f.Bytes(e)
	buf := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(raw)))
	copy(buf[4:], raw)
	return buf
}

// DecodeElement is EncodeElement's inverse.
func DecodeElement(f *field.Field, body []byte) (field.Element, error) {
	if len(body) < 4 {
		return field.Element{}, fmt.Errorf("statemachine: short element payload")
	}
	n := binary.BigEndian.Uint32(body[:4])
	if int(n) != len(body)-4 {
		return field.Element{}, fmt.Errorf("statemachine: element payload length mismatch: header %d, got %d", n, len(body)-4)
	}
	return f.FromBytes(body[4:])
}

// EncodeShare serialises one Shamir share's value (the sender's abscissa is
// determined by its party ID, already known from the message envelope, so
// only the evaluated value travels on the wire).
func EncodeShare(f *field.Field, s shamir.Share) []byte {
	return EncodeElement(f, s.Value)
}

// DecodeShare is EncodeShare's inverse.
func DecodeShare(f *field.Field, body []byte) (shamir.Share, error) {
	v, err := DecodeElement(f, body)
	if err != nil {
		return shamir.Share{}, err
	}
	return shamir.Share{Value: v}, nil
}

// transcriptHash hashes the concatenation of parts with BLAKE3 (spec's
// domain-stack entry: "Compare/Reveal transcript hash for duplicate-message
// detection; ECDSA/EdDSA commitment hashing"). Used wherever a protocol
// needs to commit to or fingerprint a message body rather than compare raw
// bytes.
func transcriptHash(parts ...[]byte) [32]byte {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
