package analyze_test

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/pixelcargo/pixelcargo/analyze"
	ptesting "github.com/pixelcargo/pixelcargo/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaster__AllEvenSamples(t *testing.T) {
	raster, err := pixelcargo.NewRasterBuffer(16, 16, 1, 8)
	require.NoError(t, err)
	for i := 0; i < raster.SampleCount(); i++ {
		raster.SetSample(i, 0x40)
	}

	report := analyze.Raster(raster)
	assert.Zero(t, report.LSBOneRate)
	assert.Zero(t, report.LSBEntropy, "constant LSB plane has zero entropy")
	assert.False(t, report.Suspicious,
		"heavily skewed LSBs are unbalanced, not coin-flip-like")
}

func TestRaster__EmbeddedPayloadRaisesEntropy(t *testing.T) {
	carrier := ptesting.GradientCarrier(t, 64, 64, 4, 8)
	// Clear the LSB plane so the carrier starts with zero LSB entropy.
	for i := 0; i < carrier.SampleCount(); i++ {
		carrier.SetSample(i, carrier.Sample(i)&^1)
	}
	before := analyze.Raster(carrier)
	require.Zero(t, before.LSBEntropy)

	payload := make([]byte, 2000)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	layout, err := pixelcargo.ParseLayout("lo1")
	require.NoError(t, err)
	_, err = pixelcargo.Encode(carrier, layout, payload, "", pixelcargo.Options{
		Seed:        "analysis",
		EntropyFill: true,
	})
	require.NoError(t, err)

	after := analyze.Raster(carrier)
	assert.Greater(t, after.LSBEntropy, before.LSBEntropy,
		"embedding a random payload should randomize the LSB plane")
	assert.InDelta(t, 0.5, after.LSBOneRate, 0.05)
}

func TestFiles__MissingFileAggregatesError(t *testing.T) {
	reports, err := analyze.Files([]string{"/nonexistent/image.png"})
	assert.Empty(t, reports)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/image.png")
}

func TestWriteCSV(t *testing.T) {
	reports := []analyze.Report{
		{File: "a.png", Width: 10, Height: 20, Channels: 4, ChiSquare: 1.25},
		{File: "b.png", Width: 30, Height: 40, Channels: 1, Suspicious: true},
	}

	var buf bytes.Buffer
	require.NoError(t, analyze.WriteCSV(&buf, reports))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "header plus one row per report")
	assert.Contains(t, lines[0], "chi_square")
	assert.Contains(t, lines[1], "a.png")
	assert.Contains(t, lines[2], "true")
}
