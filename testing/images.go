// Package testing provides fixtures shared by the package tests: synthetic
// carrier rasters with image-like statistics and in-memory streams for
// exercising container round trips.
package testing

import (
	"bytes"
	"io"
	"testing"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/pixelcargo/pixelcargo/imageio"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// GradientCarrier returns a deterministic carrier raster whose samples form
// diagonal gradients. Unlike random noise it looks like photographic data to
// the analysis code, and unlike a zero raster it makes low-bit preservation
// bugs visible.
func GradientCarrier(t *testing.T, width, height, channels int, sampleDepth uint) *pixelcargo.RasterBuffer {
	t.Helper()

	raster, err := pixelcargo.NewRasterBuffer(width, height, channels, sampleDepth)
	require.NoError(t, err)

	max := uint32(1)<<sampleDepth - 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				v := uint32(x+y*2+c*17) * 7
				raster.SetSample((y*width+x)*channels+c, uint16(v%max))
			}
		}
	}
	return raster
}

// CarrierStream PNG-encodes a raster and returns a read-write-seeker over the
// encoded bytes, for tests that need to walk the full file-shaped path.
func CarrierStream(t *testing.T, raster *pixelcargo.RasterBuffer) io.ReadWriteSeeker {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imageio.WritePNG(&buf, raster))
	require.Greater(t, buf.Len(), 0, "encoded carrier is empty")
	return bytesextra.NewReadWriteSeeker(buf.Bytes())
}
