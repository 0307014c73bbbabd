package pixelcargo

import "fmt"

// RasterBuffer is a flat width×height grid of pixel samples. Samples are 8 or
// 16 bits wide; 16-bit samples are stored big-endian, matching PNG sample
// order so container codecs can hand their raw output straight to the core.
//
// A RasterBuffer is exclusively owned by the codec for the duration of one
// encode or decode call. Encode mutates it in place; decode never writes.
type RasterBuffer struct {
	Width    int
	Height   int
	Channels int
	// SampleDepth is the native sample width in bits, 8 or 16.
	SampleDepth uint
	Pix         []byte
}

// NewRasterBuffer allocates a zeroed raster.
func NewRasterBuffer(width, height, channels int, sampleDepth uint) (*RasterBuffer, error) {
	if width <= 0 || height <= 0 || channels < 1 || channels > 4 {
		return nil, ErrUnsupportedLayout.WithMessage(
			fmt.Sprintf("bad raster geometry %dx%d/%d", width, height, channels))
	}
	if sampleDepth != 8 && sampleDepth != 16 {
		return nil, ErrUnsupportedLayout.WithMessage(
			fmt.Sprintf("samples must be 8 or 16 bits wide, got %d", sampleDepth))
	}
	size := width * height * channels * int(sampleDepth/8)
	return &RasterBuffer{
		Width:       width,
		Height:      height,
		Channels:    channels,
		SampleDepth: sampleDepth,
		Pix:         make([]byte, size),
	}, nil
}

// SampleCount returns the total number of channel samples in the raster.
func (r *RasterBuffer) SampleCount() int {
	return r.Width * r.Height * r.Channels
}

// PixelCount returns the number of pixels in the raster.
func (r *RasterBuffer) PixelCount() int {
	return r.Width * r.Height
}

// Sample returns the value of the i-th sample in row-major, channel-minor
// order, zero-extended to 16 bits.
func (r *RasterBuffer) Sample(i int) uint16 {
	if r.SampleDepth == 16 {
		return uint16(r.Pix[i*2])<<8 | uint16(r.Pix[i*2+1])
	}
	return uint16(r.Pix[i])
}

// SetSample stores v as the i-th sample. Values wider than the sample depth
// are truncated.
func (r *RasterBuffer) SetSample(i int, v uint16) {
	if r.SampleDepth == 16 {
		r.Pix[i*2] = byte(v >> 8)
		r.Pix[i*2+1] = byte(v)
		return
	}
	r.Pix[i] = byte(v)
}

// Clone returns a deep copy of the raster.
func (r *RasterBuffer) Clone() *RasterBuffer {
	dup := *r
	dup.Pix = make([]byte, len(r.Pix))
	copy(dup.Pix, r.Pix)
	return &dup
}

// BestDimensions computes near-square image dimensions whose capacity at
// bitsPerPixel covers dataBytes of payload with minimal slack.
func BestDimensions(dataBytes uint64, bitsPerPixel uint) (width, height int) {
	pixels := (dataBytes*8 + uint64(bitsPerPixel) - 1) / uint64(bitsPerPixel)
	if pixels == 0 {
		pixels = 1
	}
	w := isqrt(pixels)
	h := (pixels + w - 1) / w
	return int(w), int(h)
}

// isqrt returns the integer square root of n, rounded down, never zero.
func isqrt(n uint64) uint64 {
	if n < 2 {
		return 1
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// SynthesizeRaster allocates a dense-mode raster just large enough to carry
// frameBytes of serialized frame data under the given layout.
func SynthesizeRaster(layout Layout, frameBytes uint64) (*RasterBuffer, error) {
	if layout.Mode != ModeDense {
		return nil, ErrUnsupportedLayout.WithMessage(
			"only dense layouts can synthesize a raster")
	}
	w, h := BestDimensions(frameBytes, layout.BitsPerPixel(0))
	return NewRasterBuffer(w, h, layout.Model.ChannelCount(), layout.SampleDepth())
}
