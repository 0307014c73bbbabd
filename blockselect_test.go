package pixelcargo_test

import (
	"testing"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanOrder(s pixelcargo.Scan) []int {
	order := make([]int, s.Len())
	for i := range order {
		order[i] = s.SampleIndex(i)
	}
	return order
}

func TestBlockSelection__Deterministic(t *testing.T) {
	a, err := pixelcargo.NewBlockSelection("fixed seed", 500, 8, 320)
	require.NoError(t, err)
	b, err := pixelcargo.NewBlockSelection("fixed seed", 500, 8, 320)
	require.NoError(t, err)

	assert.Equal(t,
		scanOrder(a.FrameScan(1, 8)),
		scanOrder(b.FrameScan(1, 8)),
		"identical seed and block count must give identical permutations")
}

func TestBlockSelection__SeedSensitivity(t *testing.T) {
	a, err := pixelcargo.NewBlockSelection("seed one", 500, 8, 320)
	require.NoError(t, err)
	b, err := pixelcargo.NewBlockSelection("seed two", 500, 8, 320)
	require.NoError(t, err)

	assert.NotEqual(t,
		scanOrder(a.FrameScan(1, 8)),
		scanOrder(b.FrameScan(1, 8)),
		"different seeds should not agree on 500 block positions")
}

func TestBlockSelection__IsAPermutation(t *testing.T) {
	const blocks = 257
	sel, err := pixelcargo.NewBlockSelection("perm", blocks, 6, 0)
	require.NoError(t, err)

	seen := make(map[int]bool, blocks)
	for _, s := range scanOrder(sel.FrameScan(1, 6)) {
		assert.False(t, seen[s], "sample %d appears twice", s)
		seen[s] = true
	}
	assert.Len(t, seen, blocks)
}

func TestBlockSelection__CarrierPrefixSize(t *testing.T) {
	// 100 bits over 2 channels x 3 bits = 6 bits per block: 17 blocks.
	sel, err := pixelcargo.NewBlockSelection("s", 64, 6, 100)
	require.NoError(t, err)
	assert.Equal(t, 17, sel.CarrierBlockCount())
	assert.Equal(t, 47, sel.FillerBlockCount())

	carriers := 0
	for block := 0; block < 64; block++ {
		if sel.IsCarrier(block) {
			carriers++
		}
	}
	assert.Equal(t, 17, carriers, "bitmap disagrees with prefix size")
}

func TestBlockSelection__ChannelExpansion(t *testing.T) {
	sel, err := pixelcargo.NewBlockSelection("expand", 4, 12, 0)
	require.NoError(t, err)

	order := scanOrder(sel.FrameScan(3, 4))
	require.Len(t, order, 12)
	for i := 0; i < len(order); i += 3 {
		pixel := order[i] / 3
		assert.Equal(t, []int{pixel * 3, pixel*3 + 1, pixel*3 + 2}, order[i:i+3],
			"samples of one block must stay contiguous and in channel order")
	}
}

func TestBlockSelection__TooSmall(t *testing.T) {
	// 64 blocks x 6 bits = 384 bits of capacity.
	_, err := pixelcargo.NewBlockSelection("s", 64, 6, 385)
	assert.ErrorIs(t, err, pixelcargo.ErrCapacityExceeded)

	_, err = pixelcargo.NewBlockSelection("s", 64, 6, 384)
	assert.NoError(t, err, "exactly full carrier must be accepted")
}

func TestBlockSelection__FillerScanIsSuffix(t *testing.T) {
	sel, err := pixelcargo.NewBlockSelection("filler", 32, 4, 40)
	require.NoError(t, err)
	require.Equal(t, 10, sel.CarrierBlockCount())

	for _, sample := range scanOrder(sel.FillerScan(1, 4)) {
		assert.False(t, sel.IsCarrier(sample),
			"filler scan addresses carrier block %d", sample)
	}
}

func TestDefaultSeed(t *testing.T) {
	assert.Equal(t, "100x100", pixelcargo.DefaultSeed(100, 100))
	assert.Equal(t, "640x480", pixelcargo.DefaultSeed(640, 480))
}

func TestDeriveSeed__StableAndDistinct(t *testing.T) {
	a := pixelcargo.DeriveSeed("100x100")
	b := pixelcargo.DeriveSeed("100x100")
	c := pixelcargo.DeriveSeed("100x101")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
