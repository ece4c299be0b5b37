// Package codec implements the outer wire framing every peer message
// crosses the network in: a one-byte encoding tag, a length-prefixed
// binary body, and a varint-based field encoding for the envelope fields
// themselves (computation id, protocol address, round, message tag, raw
// body). It is deliberately generic — the state machines' own payload
// encodings (internal/statemachine's EncodeElement/EncodeShare) travel
// inside the Body field untouched, exactly as WriteTo/ReadFrom on a
// ring.Poly leaves the polynomial's own coefficient encoding opaque to
// whatever transport carries it.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's body, rejecting a length prefix
// that claims more before any allocation happens — a peer cannot force an
// unbounded read by lying about a frame's size.
const MaxFrameSize = 16 << 20 // 16 MiB

// Encoding identifies the body format following the length prefix. Only
// EncodingEnvelopeV1 is understood today; the byte exists so a future
// format can be introduced without breaking frame alignment for readers
// that still only know the old one.
type Encoding byte

// EncodingEnvelopeV1 is the only encoding understood today: the
// length-prefixed binary Envelope format this package defines. Its value
// of 0x00 matches the wire constant (0x00 = "the length-prefixed binary
// encoding used").
const EncodingEnvelopeV1 Encoding = 0

var (
	// ErrFrameTooLarge is returned by both WriteFrame and ReadFrame when a
	// body would exceed MaxFrameSize.
	ErrFrameTooLarge = errors.New("codec: frame exceeds max size")
	// ErrUnknownEncoding is returned by ReadFrame when the tag byte names an
	// encoding the reader doesn't recognise.
	ErrUnknownEncoding = errors.New("codec: unknown encoding tag")
	// ErrTruncated is returned when a body is shorter than its own declared
	// field lengths demand.
	ErrTruncated = errors.New("codec: truncated message")
)

// WriteFrame writes [1-byte encoding][4-byte little-endian length][body]
// to w. Callers that write many frames to the same writer should wrap w in
// a *bufio.Writer themselves; WriteFrame issues two Write calls (header,
// then body; only the header when the body is empty) rather than
// allocating a combined buffer per frame.
func WriteFrame(w io.Writer, enc Encoding, body []byte) error {
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	var header [5]byte
	header[0] = byte(enc)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("codec: writing frame header: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("codec: writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r, rejecting an encoding tag not present
// in known (nil means "accept any tag") and a declared length over
// MaxFrameSize before allocating the body buffer.
func ReadFrame(r io.Reader, known map[Encoding]bool) (Encoding, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("codec: reading frame header: %w", err)
	}
	enc := Encoding(header[0])
	if known != nil && !known[enc] {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, enc)
	}
	n := binary.LittleEndian.Uint32(header[1:])
	if n > MaxFrameSize {
		return 0, nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, n)
	}
	if n == 0 {
		return enc, nil, nil
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("codec: reading frame body: %w", err)
	}
	return enc, body, nil
}
