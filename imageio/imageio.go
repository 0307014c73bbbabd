// Package imageio converts between image containers and the flat raster
// buffers the codec core operates on. The core deliberately knows nothing
// about PNG chunks or file formats; everything container-shaped lives here.
package imageio

import (
	"fmt"
	"image"
	"image/png"
	"io"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ReadImage decodes any registered container format (PNG, BMP, TIFF) from r
// and flattens it into a raster buffer.
func ReadImage(r io.Reader) (*pixelcargo.RasterBuffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, pixelcargo.ErrIOFailed.Wrap(err)
	}
	return FromImage(img)
}

// FromImage flattens img into a raster buffer. Gray, Gray16, NRGBA and
// NRGBA64 images map loss-free onto 1- or 4-channel rasters; anything else is
// converted to 8-bit NRGBA first.
func FromImage(img image.Image) (*pixelcargo.RasterBuffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		return fromPlanes(w, h, 1, 8, src.Pix, src.Stride, bounds)
	case *image.Gray16:
		return fromPlanes(w, h, 1, 16, src.Pix, src.Stride, bounds)
	case *image.NRGBA:
		return fromPlanes(w, h, 4, 8, src.Pix, src.Stride, bounds)
	case *image.NRGBA64:
		return fromPlanes(w, h, 4, 16, src.Pix, src.Stride, bounds)
	}

	flat := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			flat.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return fromPlanes(w, h, 4, 8, flat.Pix, flat.Stride, flat.Bounds())
}

func fromPlanes(w, h, channels int, depth uint, pix []byte, stride int, bounds image.Rectangle) (*pixelcargo.RasterBuffer, error) {
	raster, err := pixelcargo.NewRasterBuffer(w, h, channels, depth)
	if err != nil {
		return nil, err
	}
	rowBytes := w * channels * int(depth/8)
	for y := 0; y < h; y++ {
		src := pix[y*stride : y*stride+rowBytes]
		copy(raster.Pix[y*rowBytes:], src)
	}
	return raster, nil
}

// ToImage wraps a raster buffer in the matching image type without copying
// where the stdlib has one. Three-channel and sub-byte rasters have no
// representation in the delegated PNG codec and are rejected.
func ToImage(raster *pixelcargo.RasterBuffer) (image.Image, error) {
	rect := image.Rect(0, 0, raster.Width, raster.Height)
	stride := raster.Width * raster.Channels * int(raster.SampleDepth/8)

	switch {
	case raster.Channels == 1 && raster.SampleDepth == 8:
		return &image.Gray{Pix: raster.Pix, Stride: stride, Rect: rect}, nil
	case raster.Channels == 1 && raster.SampleDepth == 16:
		return &image.Gray16{Pix: raster.Pix, Stride: stride, Rect: rect}, nil
	case raster.Channels == 2 && raster.SampleDepth == 8:
		return grayAlphaToNRGBA(raster), nil
	case raster.Channels == 4 && raster.SampleDepth == 8:
		return &image.NRGBA{Pix: raster.Pix, Stride: stride, Rect: rect}, nil
	case raster.Channels == 4 && raster.SampleDepth == 16:
		return &image.NRGBA64{Pix: raster.Pix, Stride: stride, Rect: rect}, nil
	}
	return nil, pixelcargo.ErrUnsupportedLayout.WithMessage(fmt.Sprintf(
		"no container image type for %d channels at %d-bit samples",
		raster.Channels, raster.SampleDepth))
}

// grayAlphaToNRGBA expands a 2-channel raster for encoders that lack a
// gray+alpha type. The expansion duplicates the gray sample into R, G and B,
// so it is NOT data-preserving for round trips; callers that need the raw
// raster back must keep it.
func grayAlphaToNRGBA(raster *pixelcargo.RasterBuffer) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, raster.Width, raster.Height))
	for i := 0; i < raster.PixelCount(); i++ {
		g := byte(raster.Sample(i * 2))
		a := byte(raster.Sample(i*2 + 1))
		out.Pix[i*4+0] = g
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = g
		out.Pix[i*4+3] = a
	}
	return out
}

// WritePNG encodes the raster as a PNG. The container codec owns everything
// chunk-level; unsupported raster shapes fail with ErrUnsupportedLayout.
func WritePNG(w io.Writer, raster *pixelcargo.RasterBuffer) error {
	img, err := ToImage(raster)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return pixelcargo.ErrIOFailed.Wrap(err)
	}
	return nil
}

// SupportsPNGWrite reports whether the layout's synthesized rasters can be
// handed to the delegated PNG encoder.
func SupportsPNGWrite(layout pixelcargo.Layout) bool {
	if layout.Mode != pixelcargo.ModeDense {
		return true
	}
	if layout.BitDepth < 8 {
		return false
	}
	switch layout.Model {
	case pixelcargo.Grayscale, pixelcargo.RGBA:
		return true
	}
	return false
}
