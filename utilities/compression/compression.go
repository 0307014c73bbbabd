// Package compression shrinks payloads before they are framed and embedded.
// Compression is symmetric and out-of-band: the frame records nothing about
// it, so both sides of a transfer have to agree on the flag.
package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressPayload reads raw payload bytes from input and writes the zstd
// stream to output. The return value is the number of compressed bytes
// written, only valid if no error occurred.
func CompressPayload(input io.Reader, output io.Writer) (int64, error) {
	counter := &countingWriter{w: output}
	enc, err := zstd.NewWriter(counter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return 0, err
	}

	if _, err := io.Copy(enc, input); err != nil {
		enc.Close()
		return counter.n, err
	}
	if err := enc.Close(); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}

// DecompressPayload expands a zstd stream back to the raw payload bytes and
// returns the decompressed size.
func DecompressPayload(input io.Reader, output io.Writer) (int64, error) {
	dec, err := zstd.NewReader(input)
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	return io.Copy(output, dec)
}

// CompressPayloadToBytes is CompressPayload over in-memory slices.
func CompressPayloadToBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := CompressPayload(bytes.NewReader(raw), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressPayloadToBytes is DecompressPayload over in-memory slices.
func DecompressPayloadToBytes(compressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := DecompressPayload(bytes.NewReader(compressed), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
