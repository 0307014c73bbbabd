package pixelcargo

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"unicode/utf8"
)

// Frame wire format, all integers little-endian, fields contiguous:
//
//	magic   [4]byte "PXCF"
//	version uint16
//	comment uint16 length + raw UTF-8 bytes
//	length  uint64 payload byte count
//	crc     uint32 CRC-32C over the payload bytes
//	payload [length]byte
//
// The stream the frame travels over is bit-granular; byte alignment of these
// fields is a property of the serialized form, not of their placement in the
// carrier.

var frameMagic = [4]byte{'P', 'X', 'C', 'F'}

// FrameVersion1 is the current frame format version.
const FrameVersion1 uint16 = 1

// MaxCommentLength bounds the comment field; its length travels as a uint16.
const MaxCommentLength = 0xFFFF

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// FrameHeader holds the frame fields that precede the payload. ReadHeader
// returns one of these without extracting the payload itself.
type FrameHeader struct {
	Version       uint16
	Comment       string
	PayloadLength uint64
	Checksum      uint32
}

// headerBytes returns the serialized size of the header for this comment
// length.
func (h FrameHeader) headerBytes() uint64 {
	return 4 + 2 + 2 + uint64(len(h.Comment)) + 8 + 4
}

// Frame is the logical payload container carried inside an image's bit
// stream.
type Frame struct {
	FrameHeader
	Payload []byte
}

// NewFrame builds a frame over payload with a validated comment. The checksum
// is computed here; mismatches on the decode side signal corruption or wrong
// decode parameters.
func NewFrame(comment string, payload []byte) (*Frame, error) {
	if len(comment) > MaxCommentLength {
		return nil, ErrInvalidComment.WithMessage(
			fmt.Sprintf("comment is %d bytes, maximum is %d", len(comment), MaxCommentLength))
	}
	if !utf8.ValidString(comment) {
		return nil, ErrInvalidComment.WithMessage("comment is not valid UTF-8")
	}
	return &Frame{
		FrameHeader: FrameHeader{
			Version:       FrameVersion1,
			Comment:       comment,
			PayloadLength: uint64(len(payload)),
			Checksum:      crc32.Checksum(payload, crcTable),
		},
		Payload: payload,
	}, nil
}

// EncodedBytes returns the total serialized size of the frame, header
// included.
func (h FrameHeader) EncodedBytes() uint64 {
	return h.headerBytes() + h.PayloadLength
}

// EncodedBits returns the serialized size of the frame in bits.
func (h FrameHeader) EncodedBits() uint64 {
	return h.EncodedBytes() * 8
}

// Serialize writes the frame onto w in wire order.
func (f *Frame) Serialize(w io.Writer) error {
	var scratch [8]byte

	if _, err := w.Write(frameMagic[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(scratch[:2], f.Version)
	if _, err := w.Write(scratch[:2]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(scratch[:2], uint16(len(f.Comment)))
	if _, err := w.Write(scratch[:2]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, f.Comment); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(scratch[:8], f.PayloadLength)
	if _, err := w.Write(scratch[:8]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(scratch[:4], f.Checksum)
	if _, err := w.Write(scratch[:4]); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

func readBytes(r io.ByteReader, n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return nil, ErrCorruptFrame.WithMessage(
				fmt.Sprintf("stream ended %d bytes into a %d byte field", i, n))
		}
		buf[i] = b
	}
	return buf, nil
}

// DeserializeHeader reads the frame fields up to and including the checksum,
// leaving r positioned at the first payload byte. capacityBytes is the
// carrier's addressable capacity, used to reject length fields that cannot
// possibly be satisfied.
func DeserializeHeader(r io.ByteReader, capacityBytes uint64) (FrameHeader, error) {
	var hdr FrameHeader

	magic, err := readBytes(r, 4)
	if err != nil {
		return hdr, err
	}
	if [4]byte(magic) != frameMagic {
		return hdr, ErrCorruptFrame.WithMessage(
			fmt.Sprintf("bad magic %x, want %x", magic, frameMagic[:]))
	}

	raw, err := readBytes(r, 2)
	if err != nil {
		return hdr, err
	}
	hdr.Version = binary.LittleEndian.Uint16(raw)
	if hdr.Version != FrameVersion1 {
		return hdr, ErrCorruptFrame.WithMessage(
			fmt.Sprintf("unknown frame version %d", hdr.Version))
	}

	raw, err = readBytes(r, 2)
	if err != nil {
		return hdr, err
	}
	commentLen := binary.LittleEndian.Uint16(raw)
	comment, err := readBytes(r, int(commentLen))
	if err != nil {
		return hdr, err
	}
	if !utf8.Valid(comment) {
		return hdr, ErrInvalidComment.WithMessage("stored comment is not valid UTF-8")
	}
	hdr.Comment = string(comment)

	raw, err = readBytes(r, 8)
	if err != nil {
		return hdr, err
	}
	hdr.PayloadLength = binary.LittleEndian.Uint64(raw)
	// Subtraction form: the naive header+payload sum wraps around for a
	// hostile length field near the uint64 ceiling.
	if hdr.PayloadLength > capacityBytes ||
		hdr.headerBytes() > capacityBytes-hdr.PayloadLength {
		return hdr, ErrCorruptFrame.WithMessage(fmt.Sprintf(
			"frame claims %d payload bytes but the carrier holds at most %d",
			hdr.PayloadLength, capacityBytes))
	}

	raw, err = readBytes(r, 4)
	if err != nil {
		return hdr, err
	}
	hdr.Checksum = binary.LittleEndian.Uint32(raw)

	return hdr, nil
}

// DeserializeFrame reads a complete frame and verifies the payload digest.
func DeserializeFrame(r io.ByteReader, capacityBytes uint64) (*Frame, error) {
	hdr, err := DeserializeHeader(r, capacityBytes)
	if err != nil {
		return nil, err
	}

	if hdr.PayloadLength > math.MaxInt {
		return nil, ErrCorruptFrame.WithMessage(fmt.Sprintf(
			"frame claims %d payload bytes, more than this platform can address",
			hdr.PayloadLength))
	}
	payload, err := readBytes(r, int(hdr.PayloadLength))
	if err != nil {
		return nil, err
	}

	if crc := crc32.Checksum(payload, crcTable); crc != hdr.Checksum {
		return nil, ErrChecksumMismatch.WithMessage(fmt.Sprintf(
			"stored CRC %08X, computed %08X (corrupt data or wrong seed)",
			hdr.Checksum, crc))
	}

	return &Frame{FrameHeader: hdr, Payload: payload}, nil
}
