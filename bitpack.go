package pixelcargo

import (
	"fmt"
	"io"
)

// BitCursor addresses a single bit within a scan: the scan position of the
// current sample plus the bit offset inside that sample's addressed field.
// Cursors are plain values; they are never persisted across codec calls.
type BitCursor struct {
	Sample int
	Bit    uint
}

// Scan maps a contiguous bit stream onto raster samples. The two
// implementations, the dense row-major scan and the embed permutation scan,
// are interchangeable behind this interface so the packing engine never knows
// which mode it is running in.
type Scan interface {
	// SampleIndex translates a scan position into a raster sample index.
	SampleIndex(pos int) int
	// Len returns the number of samples the scan addresses.
	Len() int
	// BitsPerSample returns how many stream bits each sample carries.
	BitsPerSample() uint
	// PreserveHighBits reports whether sample bits above BitsPerSample must
	// be left untouched by writes.
	PreserveHighBits() bool
}

// linearScan walks every sample in row-major order; the whole sample value is
// stream data. Used by dense mode.
type linearScan struct {
	samples int
	bits    uint
}

func (s linearScan) SampleIndex(pos int) int { return pos }
func (s linearScan) Len() int                { return s.samples }
func (s linearScan) BitsPerSample() uint     { return s.bits }
func (s linearScan) PreserveHighBits() bool  { return false }

// NewDenseScan returns the row-major full-sample scan for a dense layout over
// the given raster.
func NewDenseScan(r *RasterBuffer, layout Layout) Scan {
	return linearScan{samples: r.SampleCount(), bits: layout.BitDepth}
}

// orderedScan walks an explicit list of sample indices, touching only the
// lowest bits of each. Used by embed mode, where the order comes from the
// block selector's permutation.
type orderedScan struct {
	order []int
	bits  uint
}

func (s orderedScan) SampleIndex(pos int) int { return s.order[pos] }
func (s orderedScan) Len() int                { return len(s.order) }
func (s orderedScan) BitsPerSample() uint     { return s.bits }
func (s orderedScan) PreserveHighBits() bool  { return true }

// NewOrderedScan returns a low-bit scan over an explicit sample order. The
// block selector builds its scans through this; it is also the natural way to
// address a handpicked sample subset directly.
func NewOrderedScan(order []int, bitDepth uint) Scan {
	return orderedScan{order: order, bits: bitDepth}
}

// ScanBits returns the total number of stream bits a scan can carry.
func ScanBits(s Scan) uint64 {
	return uint64(s.Len()) * uint64(s.BitsPerSample())
}

// -----------------------------------------------------------------------------

// StreamWriter packs a bit stream into raster samples along a scan. Bits are
// consumed LSB-first from each input byte and fill each sample's addressed
// field from bit 0 upward.
//
// The writer clears a sample's addressed field the first time it touches it,
// so if the stream ends partway through a sample the unused field bits come
// out zero. Samples past the final cursor position are never modified.
type StreamWriter struct {
	raster *RasterBuffer
	scan   Scan
	cur    BitCursor
}

func NewStreamWriter(raster *RasterBuffer, scan Scan) *StreamWriter {
	return &StreamWriter{raster: raster, scan: scan}
}

// NewStreamWriterAt resumes writing from an explicit cursor.
func NewStreamWriterAt(raster *RasterBuffer, scan Scan, cur BitCursor) *StreamWriter {
	return &StreamWriter{raster: raster, scan: scan, cur: cur}
}

// Cursor returns the writer's position as a plain value.
func (w *StreamWriter) Cursor() BitCursor {
	return w.cur
}

// RemainingBits returns how many more stream bits the scan can accept.
func (w *StreamWriter) RemainingBits() uint64 {
	used := uint64(w.cur.Sample)*uint64(w.scan.BitsPerSample()) + uint64(w.cur.Bit)
	if total := ScanBits(w.scan); used < total {
		return total - used
	}
	return 0
}

// WriteBits packs the low nbits of v into the scan, LSB-first. nbits must be
// at most 64. Overrunning the scan fails with ErrCapacityExceeded.
func (w *StreamWriter) WriteBits(v uint64, nbits uint) error {
	per := w.scan.BitsPerSample()
	for nbits > 0 {
		if w.cur.Sample >= w.scan.Len() {
			return ErrCapacityExceeded.WithMessage(
				fmt.Sprintf("bit stream overran the scan at sample %d", w.cur.Sample))
		}

		take := per - w.cur.Bit
		if take > nbits {
			take = nbits
		}

		idx := w.scan.SampleIndex(w.cur.Sample)
		sample := w.raster.Sample(idx)
		if w.cur.Bit == 0 {
			if w.scan.PreserveHighBits() {
				sample &^= uint16(1)<<per - 1
			} else {
				sample = 0
			}
		}
		sample |= uint16(v&(uint64(1)<<take-1)) << w.cur.Bit
		w.raster.SetSample(idx, sample)

		v >>= take
		nbits -= take
		w.cur.Bit += take
		if w.cur.Bit == per {
			w.cur.Bit = 0
			w.cur.Sample++
		}
	}
	return nil
}

// WriteByte implements io.ByteWriter.
func (w *StreamWriter) WriteByte(b byte) error {
	return w.WriteBits(uint64(b), 8)
}

// Write implements io.Writer over the scan.
func (w *StreamWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := w.WriteBits(uint64(b), 8); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// -----------------------------------------------------------------------------

// StreamReader unpacks a bit stream from raster samples along a scan. It is
// the exact inverse of StreamWriter and never mutates the raster.
type StreamReader struct {
	raster *RasterBuffer
	scan   Scan
	cur    BitCursor
}

func NewStreamReader(raster *RasterBuffer, scan Scan) *StreamReader {
	return &StreamReader{raster: raster, scan: scan}
}

// NewStreamReaderAt resumes reading from an explicit cursor.
func NewStreamReaderAt(raster *RasterBuffer, scan Scan, cur BitCursor) *StreamReader {
	return &StreamReader{raster: raster, scan: scan, cur: cur}
}

// Cursor returns the reader's position as a plain value.
func (r *StreamReader) Cursor() BitCursor {
	return r.cur
}

// ReadBits unpacks nbits from the scan, LSB-first. Running off the end of the
// scan fails with io.ErrUnexpectedEOF; the frame's own length field is what
// bounds meaningful reads.
func (r *StreamReader) ReadBits(nbits uint) (uint64, error) {
	per := r.scan.BitsPerSample()
	var v uint64
	var got uint
	for got < nbits {
		if r.cur.Sample >= r.scan.Len() {
			return 0, io.ErrUnexpectedEOF
		}

		take := per - r.cur.Bit
		if take > nbits-got {
			take = nbits - got
		}

		sample := r.raster.Sample(r.scan.SampleIndex(r.cur.Sample))
		chunk := (uint64(sample) >> r.cur.Bit) & (uint64(1)<<take - 1)
		v |= chunk << got

		got += take
		r.cur.Bit += take
		if r.cur.Bit == per {
			r.cur.Bit = 0
			r.cur.Sample++
		}
	}
	return v, nil
}

// ReadByte implements io.ByteReader.
func (r *StreamReader) ReadByte() (byte, error) {
	v, err := r.ReadBits(8)
	return byte(v), err
}

// Read implements io.Reader over the scan.
func (r *StreamReader) Read(p []byte) (int, error) {
	for i := range p {
		v, err := r.ReadBits(8)
		if err != nil {
			if i > 0 {
				return i, io.ErrUnexpectedEOF
			}
			return 0, io.EOF
		}
		p[i] = byte(v)
	}
	return len(p), nil
}
