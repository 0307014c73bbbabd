// Package pixelcargo converts arbitrary binary payloads into raster pixel
// data. Dense layouts synthesize an image purely to carry data at maximum
// density; embed ("lo") layouts hide a payload in an existing carrier image
// by rewriting only the lowest bits of pseudo-randomly selected pixels,
// optionally hiding the payload's statistical footprint by filling unused
// pixels with entropy-matched noise.
//
// The package operates on flat raster buffers; image container parsing and
// file I/O stay with the caller.
package pixelcargo

import "fmt"

// Options carries the per-call knobs shared by Encode, Decode and ReadHeader.
type Options struct {
	// Seed keys the embed-mode block permutation. Empty means
	// DefaultSeed(width, height). Ignored in dense mode.
	Seed string
	// EntropyFill, on embed-mode encode, fills every unused block with
	// noise matching the payload's byte distribution.
	EntropyFill bool
}

func (o Options) seedFor(r *RasterBuffer) string {
	if o.Seed != "" {
		return o.Seed
	}
	return DefaultSeed(r.Width, r.Height)
}

// checkRaster verifies the raster is self-consistent and, for dense layouts,
// shaped the way the layout demands.
func checkRaster(r *RasterBuffer, layout Layout) error {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return ErrUnsupportedLayout.WithMessage("empty raster")
	}
	want := r.Width * r.Height * r.Channels * int(r.SampleDepth/8)
	if len(r.Pix) != want {
		return ErrUnsupportedLayout.WithMessage(fmt.Sprintf(
			"raster holds %d bytes, geometry requires %d", len(r.Pix), want))
	}
	if layout.Mode == ModeDense {
		if r.Channels != layout.Model.ChannelCount() {
			return ErrUnsupportedLayout.WithMessage(fmt.Sprintf(
				"layout %s wants %d channels, raster has %d",
				layout, layout.Model.ChannelCount(), r.Channels))
		}
		if r.SampleDepth != layout.SampleDepth() {
			return ErrUnsupportedLayout.WithMessage(fmt.Sprintf(
				"layout %s wants %d-bit samples, raster has %d-bit",
				layout, layout.SampleDepth(), r.SampleDepth))
		}
	}
	return nil
}

// Encode writes payload, framed with comment and checksum, into the raster
// under the given layout. The raster is mutated in place and returned.
//
// Embed mode touches only the layout's low bits of carrier-block samples;
// every other bit of the carrier survives exactly. Fails with
// ErrCapacityExceeded when the framed payload does not fit.
func Encode(r *RasterBuffer, layout Layout, payload []byte, comment string, opts Options) (*RasterBuffer, error) {
	if err := checkRaster(r, layout); err != nil {
		return nil, err
	}

	frame, err := NewFrame(comment, payload)
	if err != nil {
		return nil, err
	}

	capacity := layout.CapacityBits(r.Width, r.Height, r.Channels)
	if frame.EncodedBits() > capacity {
		return nil, ErrCapacityExceeded.WithMessage(fmt.Sprintf(
			"frame is %d bits, carrier holds %d", frame.EncodedBits(), capacity))
	}

	if layout.Mode == ModeDense {
		return r, encodeDense(r, layout, frame)
	}
	return r, encodeEmbed(r, layout, frame, opts)
}

func encodeDense(r *RasterBuffer, layout Layout, frame *Frame) error {
	w := NewStreamWriter(r, NewDenseScan(r, layout))
	if err := frame.Serialize(w); err != nil {
		return err
	}

	// Synthesized images are sized near-square, so there is usually slack
	// after the frame. Random-fill it rather than leaving a flat zero tail;
	// decode ignores everything past the frame's length field.
	g, err := NewEntropyGenerator()
	if err != nil {
		return err
	}
	for w.RemainingBits() >= 64 {
		if err := w.WriteBits(g.Uint64(), 64); err != nil {
			return err
		}
	}
	if rem := w.RemainingBits(); rem > 0 {
		return w.WriteBits(g.Uint64(), uint(rem))
	}
	return nil
}

func encodeEmbed(r *RasterBuffer, layout Layout, frame *Frame, opts Options) error {
	selection, err := NewBlockSelection(
		opts.seedFor(r),
		r.PixelCount(),
		layout.BitsPerPixel(r.Channels),
		frame.EncodedBits(),
	)
	if err != nil {
		return err
	}

	w := NewStreamWriter(r, selection.FrameScan(r.Channels, layout.BitDepth))
	if err := frame.Serialize(w); err != nil {
		return err
	}

	if !opts.EntropyFill {
		return nil
	}
	g, err := NewEntropyGenerator()
	if err != nil {
		return err
	}
	filler := NewStreamWriter(r, selection.FillerScan(r.Channels, layout.BitDepth))
	return FillUnused(filler, NewByteDistribution(frame.Payload), g)
}

// frameReader positions a StreamReader at the start of the frame for the
// given mode.
func frameReader(r *RasterBuffer, layout Layout, opts Options) (*StreamReader, error) {
	if layout.Mode == ModeDense {
		return NewStreamReader(r, NewDenseScan(r, layout)), nil
	}
	// The decoder cannot know the carrier prefix length before reading the
	// header, so it scans the full permutation; the frame's own length
	// fields stop it before the filler suffix.
	selection, err := NewBlockSelection(
		opts.seedFor(r),
		r.PixelCount(),
		layout.BitsPerPixel(r.Channels),
		0,
	)
	if err != nil {
		return nil, err
	}
	return NewStreamReader(r, selection.FrameScan(r.Channels, layout.BitDepth)), nil
}

// Decode extracts and verifies the payload carried in the raster. The raster
// is never mutated; no caller-visible state changes on failure.
func Decode(r *RasterBuffer, layout Layout, opts Options) ([]byte, error) {
	if err := checkRaster(r, layout); err != nil {
		return nil, err
	}
	reader, err := frameReader(r, layout, opts)
	if err != nil {
		return nil, err
	}
	frame, err := DeserializeFrame(reader, layout.CapacityBytes(r.Width, r.Height, r.Channels))
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// ReadHeader extracts only the frame header: version, comment, payload length
// and stored checksum. The payload itself is left in the raster unread.
func ReadHeader(r *RasterBuffer, layout Layout, opts Options) (FrameHeader, error) {
	if err := checkRaster(r, layout); err != nil {
		return FrameHeader{}, err
	}
	reader, err := frameReader(r, layout, opts)
	if err != nil {
		return FrameHeader{}, err
	}
	return DeserializeHeader(reader, layout.CapacityBytes(r.Width, r.Height, r.Channels))
}
