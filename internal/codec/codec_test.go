package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello wire")
	require.NoError(t, WriteFrame(&buf, EncodingEnvelopeV1, body))

	enc, got, err := ReadFrame(&buf, map[Encoding]bool{EncodingEnvelopeV1: true})
	require.NoError(t, err)
	require.Equal(t, EncodingEnvelopeV1, enc)
	require.Equal(t, body, got)
}

func TestFrameRoundTripEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, EncodingEnvelopeV1, nil))

	_, got, err := ReadFrame(&buf, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReadFrameRejectsUnknownEncoding(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Encoding(99), []byte("x")))

	_, _, err := ReadFrame(&buf, map[Encoding]bool{EncodingEnvelopeV1: true})
	require.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestWriteFrameRejectsOversizedBody(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, EncodingEnvelopeV1, make([]byte, MaxFrameSize+1))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrameRejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(EncodingEnvelopeV1))
	var lenBytes [4]byte
	// Hand-craft a header claiming more than MaxFrameSize without actually
	// writing that many body bytes — ReadFrame must reject before it tries
	// to read (and allocate) the declared length.
	big := uint32(MaxFrameSize + 1)
	lenBytes[0] = byte(big)
	lenBytes[1] = byte(big >> 8)
	lenBytes[2] = byte(big >> 16)
	lenBytes[3] = byte(big >> 24)
	buf.Write(lenBytes[:])

	_, _, err := ReadFrame(&buf, nil)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	e := Envelope{
		ComputationID: "comp-42",
		AddressIndex:  7,
		AddressType:   2,
		From:          "party-b",
		Round:         3,
		Tag:           1,
		Body:          []byte{0x00, 0xff, 0x10, 0x00},
	}
	got, err := DecodeEnvelope(EncodeEnvelope(e))
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestEnvelopeRoundTripEmptyFields(t *testing.T) {
	e := Envelope{}
	got, err := DecodeEnvelope(EncodeEnvelope(e))
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestDecodeEnvelopeRejectsTruncated(t *testing.T) {
	full := EncodeEnvelope(Envelope{ComputationID: "c", From: "p", Body: []byte("xyz")})
	for n := 0; n < len(full); n++ {
		_, err := DecodeEnvelope(full[:n])
		require.Error(t, err, "truncating to %d bytes should fail", n)
	}
}

func TestEnvelopeThroughFrame(t *testing.T) {
	var buf bytes.Buffer
	e := Envelope{ComputationID: "comp-1", AddressIndex: 12, From: "leader", Round: 0, Tag: 4, Body: []byte("share-bytes")}
	require.NoError(t, WriteFrame(&buf, EncodingEnvelopeV1, EncodeEnvelope(e)))

	enc, body, err := ReadFrame(&buf, map[Encoding]bool{EncodingEnvelopeV1: true})
	require.NoError(t, err)
	require.Equal(t, EncodingEnvelopeV1, enc)

	got, err := DecodeEnvelope(body)
	require.NoError(t, err)
	require.Equal(t, e, got)
}
