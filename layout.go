package pixelcargo

import (
	"fmt"
	"strconv"
	"unicode"
)

// Mode selects how a layout addresses carrier bits.
type Mode uint8

const (
	// ModeDense synthesizes an image that exists only to carry data. Every
	// sample's full value range is payload.
	ModeDense Mode = iota
	// ModeEmbed hides data in an existing carrier image by rewriting only
	// the lowest bits of each sample.
	ModeEmbed
)

// ColorModel enumerates the channel structures supported in dense mode. The
// set is closed; there is no open-ended dispatch on pixel formats.
type ColorModel uint8

const (
	Grayscale ColorModel = iota
	GrayscaleAlpha
	RGB
	RGBA
)

// ChannelCount returns the number of samples per pixel for the model.
func (m ColorModel) ChannelCount() int {
	switch m {
	case Grayscale:
		return 1
	case GrayscaleAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	}
	return 0
}

func (m ColorModel) String() string {
	switch m {
	case Grayscale:
		return "g"
	case GrayscaleAlpha:
		return "ga"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	}
	return "?"
}

// Layout is an immutable descriptor of how payload bits map onto pixel
// samples.
//
// Dense layouts fix the image's color model and bit depth; the whole sample
// value is payload. Embed layouts carry no color model of their own (the
// carrier image supplies it) and BitDepth counts the low-order bits stolen
// from each carrier sample.
type Layout struct {
	Mode     Mode
	Model    ColorModel
	BitDepth uint
}

var denseDepths = map[ColorModel][]uint{
	Grayscale:      {1, 2, 4, 8, 16},
	GrayscaleAlpha: {1, 2, 4, 8, 16},
	RGB:            {8, 16},
	RGBA:           {8, 16},
}

// ParseLayout resolves a layout tag such as "rgba8", "g4" or "lo3" into a
// Layout. Unknown tags fail with ErrUnsupportedLayout.
func ParseLayout(tag string) (Layout, error) {
	split := -1
	for i, c := range tag {
		if unicode.IsDigit(c) {
			split = i
			break
		}
	}
	if split <= 0 {
		return Layout{}, ErrUnsupportedLayout.WithMessage(
			fmt.Sprintf("no bit depth in layout tag %q", tag))
	}

	name, digits := tag[:split], tag[split:]
	depth, err := strconv.Atoi(digits)
	if err != nil || depth <= 0 {
		return Layout{}, ErrUnsupportedLayout.WithMessage(
			fmt.Sprintf("bad bit depth %q in layout tag %q", digits, tag))
	}

	if name == "lo" {
		// Low-bit embedding steals 1-7 bits per sample; 8 or more would
		// destroy the carrier outright.
		if depth > 7 {
			return Layout{}, ErrUnsupportedLayout.WithMessage(
				fmt.Sprintf("lo layouts take 1-7 bits, got %d", depth))
		}
		return Layout{Mode: ModeEmbed, BitDepth: uint(depth)}, nil
	}

	var model ColorModel
	switch name {
	case "g":
		model = Grayscale
	case "ga":
		model = GrayscaleAlpha
	case "rgb":
		model = RGB
	case "rgba":
		model = RGBA
	default:
		return Layout{}, ErrUnsupportedLayout.WithMessage(
			fmt.Sprintf("unknown layout tag %q", tag))
	}

	for _, d := range denseDepths[model] {
		if uint(depth) == d {
			return Layout{Mode: ModeDense, Model: model, BitDepth: uint(depth)}, nil
		}
	}
	return Layout{}, ErrUnsupportedLayout.WithMessage(
		fmt.Sprintf("color type %s cannot have bit depth %d", model, depth))
}

func (l Layout) String() string {
	if l.Mode == ModeEmbed {
		return fmt.Sprintf("lo%d", l.BitDepth)
	}
	return fmt.Sprintf("%s%d", l.Model, l.BitDepth)
}

// ChannelCount returns the samples per pixel the layout addresses.
// carrierChannels is the carrier image's channel count; dense layouts ignore
// it.
func (l Layout) ChannelCount(carrierChannels int) int {
	if l.Mode == ModeEmbed {
		return carrierChannels
	}
	return l.Model.ChannelCount()
}

// SampleDepth returns the native width, in bits, of a raster sample holding
// this layout's dense data. Sub-byte dense depths still occupy 8-bit samples.
func (l Layout) SampleDepth() uint {
	if l.BitDepth == 16 {
		return 16
	}
	return 8
}

// BitsPerPixel returns the number of payload bits one pixel carries.
func (l Layout) BitsPerPixel(carrierChannels int) uint {
	return uint(l.ChannelCount(carrierChannels)) * l.BitDepth
}

// CapacityBits returns the total number of payload bits addressable in a
// width×height image with the given carrier channel count.
func (l Layout) CapacityBits(width, height, carrierChannels int) uint64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return uint64(width) * uint64(height) * uint64(l.BitsPerPixel(carrierChannels))
}

// CapacityBytes is CapacityBits truncated to whole bytes.
func (l Layout) CapacityBytes(width, height, carrierChannels int) uint64 {
	return l.CapacityBits(width, height, carrierChannels) / 8
}
