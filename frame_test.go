package pixelcargo_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializeFrame(t *testing.T, frame *pixelcargo.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, frame.Serialize(&buf))
	return buf.Bytes()
}

func TestFrame__WireFormat(t *testing.T) {
	frame, err := pixelcargo.NewFrame("hi", []byte{0xDE, 0xAD})
	require.NoError(t, err)

	raw := serializeFrame(t, frame)
	assert.EqualValues(t, frame.EncodedBytes(), len(raw))
	assert.EqualValues(t, len(raw)*8, frame.EncodedBits())

	// magic, version, comment length, comment
	assert.Equal(t, []byte("PXCF"), raw[:4])
	assert.Equal(t, []byte{1, 0}, raw[4:6], "version, little-endian")
	assert.Equal(t, []byte{2, 0}, raw[6:8], "comment length, little-endian")
	assert.Equal(t, []byte("hi"), raw[8:10])
	// payload length u64, then crc u32, then payload
	assert.Equal(t, []byte{2, 0, 0, 0, 0, 0, 0, 0}, raw[10:18])
	assert.Equal(t, []byte{0xDE, 0xAD}, raw[22:])
}

func TestFrame__RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox")
	frame, err := pixelcargo.NewFrame("test comment", payload)
	require.NoError(t, err)

	raw := serializeFrame(t, frame)
	decoded, err := pixelcargo.DeserializeFrame(bytes.NewReader(raw), uint64(len(raw)))
	require.NoError(t, err)

	assert.Equal(t, pixelcargo.FrameVersion1, decoded.Version)
	assert.Equal(t, "test comment", decoded.Comment)
	assert.EqualValues(t, len(payload), decoded.PayloadLength)
	assert.Equal(t, payload, decoded.Payload)
}

func TestFrame__EmptyPayloadAndComment(t *testing.T) {
	frame, err := pixelcargo.NewFrame("", nil)
	require.NoError(t, err)

	raw := serializeFrame(t, frame)
	decoded, err := pixelcargo.DeserializeFrame(bytes.NewReader(raw), uint64(len(raw)))
	require.NoError(t, err)
	assert.Empty(t, decoded.Comment)
	assert.Empty(t, decoded.Payload)
}

func TestFrame__CommentValidation(t *testing.T) {
	_, err := pixelcargo.NewFrame(string([]byte{0xFF, 0xFE}), nil)
	assert.ErrorIs(t, err, pixelcargo.ErrInvalidComment)

	_, err = pixelcargo.NewFrame(strings.Repeat("x", 0x10000), nil)
	assert.ErrorIs(t, err, pixelcargo.ErrInvalidComment)

	// Exactly at the bound is fine.
	_, err = pixelcargo.NewFrame(strings.Repeat("x", 0xFFFF), nil)
	assert.NoError(t, err)
}

func TestDeserializeFrame__BadMagic(t *testing.T) {
	frame, err := pixelcargo.NewFrame("", []byte{1, 2, 3})
	require.NoError(t, err)
	raw := serializeFrame(t, frame)
	raw[0] = 'Q'

	_, err = pixelcargo.DeserializeFrame(bytes.NewReader(raw), uint64(len(raw)))
	assert.ErrorIs(t, err, pixelcargo.ErrCorruptFrame)
}

func TestDeserializeFrame__LengthExceedsCapacity(t *testing.T) {
	frame, err := pixelcargo.NewFrame("", []byte{1, 2, 3})
	require.NoError(t, err)
	raw := serializeFrame(t, frame)

	// A capacity smaller than the claimed frame size must be rejected at the
	// header, before any payload extraction is attempted.
	_, err = pixelcargo.DeserializeFrame(bytes.NewReader(raw), frame.EncodedBytes()-1)
	assert.ErrorIs(t, err, pixelcargo.ErrCorruptFrame)
}

func TestDeserializeFrame__HostileLengthField(t *testing.T) {
	frame, err := pixelcargo.NewFrame("", []byte{1, 2, 3})
	require.NoError(t, err)
	raw := serializeFrame(t, frame)

	// Length fields near the uint64 ceiling make the naive header+payload
	// sum wrap around; they must fail validation, not panic allocation.
	for _, length := range []uint64{
		^uint64(0),
		^uint64(0) - 19,
		1 << 62,
	} {
		patched := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint64(patched[8:16], length)

		_, err := pixelcargo.DeserializeFrame(bytes.NewReader(patched), 100)
		assert.ErrorIs(t, err, pixelcargo.ErrCorruptFrame, "length %d", length)

		_, err = pixelcargo.DeserializeHeader(bytes.NewReader(patched), 100)
		assert.ErrorIs(t, err, pixelcargo.ErrCorruptFrame, "length %d", length)
	}
}

func TestDeserializeFrame__ChecksumMismatch(t *testing.T) {
	frame, err := pixelcargo.NewFrame("c", []byte{9, 9, 9, 9})
	require.NoError(t, err)
	raw := serializeFrame(t, frame)
	raw[len(raw)-1] ^= 0x01 // flip one payload bit

	_, err = pixelcargo.DeserializeFrame(bytes.NewReader(raw), uint64(len(raw)))
	assert.ErrorIs(t, err, pixelcargo.ErrChecksumMismatch)
}

func TestDeserializeFrame__Truncated(t *testing.T) {
	frame, err := pixelcargo.NewFrame("comment", bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	raw := serializeFrame(t, frame)

	for _, cut := range []int{0, 3, 5, 9, 20} {
		_, err := pixelcargo.DeserializeFrame(
			bytes.NewReader(raw[:cut]), uint64(len(raw)))
		assert.ErrorIs(t, err, pixelcargo.ErrCorruptFrame, "cut at %d", cut)
	}
}

func TestDeserializeHeader__StopsBeforePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 64)
	frame, err := pixelcargo.NewFrame("just looking", payload)
	require.NoError(t, err)
	raw := serializeFrame(t, frame)

	// Truncate the stream right after the header; header-only decode must
	// still succeed because it never touches payload bytes.
	headerOnly := raw[:len(raw)-len(payload)]
	hdr, err := pixelcargo.DeserializeHeader(
		bytes.NewReader(headerOnly), uint64(len(raw)))
	require.NoError(t, err)

	assert.Equal(t, "just looking", hdr.Comment)
	assert.EqualValues(t, 64, hdr.PayloadLength)
	assert.Equal(t, frame.Checksum, hdr.Checksum)
	assert.EqualValues(t, len(raw), hdr.EncodedBytes(),
		"header-only reads must still account for the whole frame's footprint")
}
