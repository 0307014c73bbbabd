package compression_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/noxer/bytewriter"
	c "github.com/pixelcargo/pixelcargo/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoundTripTestCase(t *testing.T, originalData []byte) {
	t.Helper()

	compressed, err := c.CompressPayloadToBytes(originalData)
	require.NoError(t, err)

	decompressed, err := c.DecompressPayloadToBytes(compressed)
	require.NoError(t, err)
	assert.Equal(t, originalData, decompressed)
}

func TestRoundTrip__Empty(t *testing.T) {
	runRoundTripTestCase(t, []byte{})
}

func TestRoundTrip__Text(t *testing.T) {
	runRoundTripTestCase(t, bytes.Repeat([]byte("compressible payload "), 500))
}

func TestRoundTrip__CompletelyRandom(t *testing.T) {
	originalData := make([]byte, 1852)
	rand.Read(originalData)
	runRoundTripTestCase(t, originalData)
}

func TestRoundTrip__EntirelyNulls(t *testing.T) {
	runRoundTripTestCase(t, make([]byte, 571))
}

func TestCompressPayload__ShrinksRedundantInput(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 1<<16)
	var out bytes.Buffer

	n, err := c.CompressPayload(bytes.NewReader(raw), &out)
	require.NoError(t, err)
	assert.EqualValues(t, out.Len(), n)
	assert.Less(t, out.Len(), len(raw)/100, "constant input barely compressed")
}

func TestDecompressPayload__Garbage(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE}
	fixed := make([]byte, 64)

	_, err := c.DecompressPayload(bytes.NewReader(garbage), bytewriter.New(fixed))
	assert.Error(t, err, "non-zstd input should not decompress")
}
