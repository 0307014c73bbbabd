package pixelcargo

import (
	cryptorand "crypto/rand"
	"fmt"
	mrand "math/rand/v2"

	"github.com/boljen/go-bitmap"
	"golang.org/x/crypto/argon2"
)

// A block is one pixel: all channel samples of that pixel, scanned in channel
// order. The block selector permutes pixel indices; each block carries
// channels × bit_depth stream bits. This granularity is part of the on-wire
// contract: a decoder using a different unit cannot locate the frame.

// seedSalt fixes the argon2 derivation so the same seed string always expands
// to the same generator state.
const seedSalt = "pixelcargo.embed"

// DefaultSeed returns the seed used when the caller supplies none: the
// carrier's pixel dimensions formatted as "{width}x{height}".
func DefaultSeed(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// DeriveSeed expands a free-form seed string into 32 bytes of generator key
// material via argon2id.
func DeriveSeed(seed string) [32]byte {
	key := argon2.IDKey([]byte(seed), []byte(seedSalt), 1, 64*1024, 4, 32)
	return [32]byte(key)
}

// NewSeededGenerator returns a fresh ChaCha8 generator keyed from the seed
// string. Generators are created per call and never shared; determinism
// across processes is what lets a decoder find the carrier blocks at all.
func NewSeededGenerator(seed string) *mrand.ChaCha8 {
	return mrand.NewChaCha8(DeriveSeed(seed))
}

// NewEntropyGenerator returns a ChaCha8 generator keyed from the operating
// system's entropy source. Used only where reproducibility must NOT hold,
// such as filler generation.
func NewEntropyGenerator() (*mrand.ChaCha8, error) {
	var key [32]byte
	if _, err := cryptorand.Read(key[:]); err != nil {
		return nil, ErrIOFailed.Wrap(err)
	}
	return mrand.NewChaCha8(key), nil
}

// uniformUint64 draws a uniform value in [0, n) by rejection sampling, so the
// permutation below has no modulo bias and is fully determined by the
// generator's output sequence.
func uniformUint64(g *mrand.ChaCha8, n uint64) uint64 {
	limit := ^uint64(0) - ^uint64(0)%n
	for {
		v := g.Uint64()
		if v < limit {
			return v % n
		}
	}
}

// BlockSelection is a seeded permutation of the carrier's pixel indices,
// split into a carrier prefix sized to exactly hold one frame and a
// filler-eligible suffix.
type BlockSelection struct {
	order      []int
	carrier    int
	carrierSet bitmap.Bitmap
	blockBits  uint
}

// NewBlockSelection shuffles the pixelCount block indices with a Fisher-Yates
// pass over a generator keyed from seed, then reserves the first
// ceil(frameBits / bitsPerBlock) positions as carrier blocks. Fails with
// ErrCapacityExceeded when the frame does not fit.
func NewBlockSelection(seed string, pixelCount int, bitsPerBlock uint, frameBits uint64) (*BlockSelection, error) {
	if pixelCount <= 0 || bitsPerBlock == 0 {
		return nil, ErrUnsupportedLayout.WithMessage("empty carrier")
	}

	needed := int((frameBits + uint64(bitsPerBlock) - 1) / uint64(bitsPerBlock))
	if needed > pixelCount {
		return nil, ErrCapacityExceeded.WithMessage(fmt.Sprintf(
			"frame needs %d blocks, carrier has %d", needed, pixelCount))
	}

	order := make([]int, pixelCount)
	for i := range order {
		order[i] = i
	}

	g := NewSeededGenerator(seed)
	for i := pixelCount - 1; i > 0; i-- {
		j := int(uniformUint64(g, uint64(i+1)))
		order[i], order[j] = order[j], order[i]
	}

	carrierSet := bitmap.Bitmap(bitmap.NewSlice(pixelCount))
	for _, block := range order[:needed] {
		carrierSet.Set(block, true)
	}

	return &BlockSelection{
		order:      order,
		carrier:    needed,
		carrierSet: carrierSet,
		blockBits:  bitsPerBlock,
	}, nil
}

// CarrierBlockCount returns the number of blocks the frame occupies.
func (s *BlockSelection) CarrierBlockCount() int {
	return s.carrier
}

// FillerBlockCount returns the number of filler-eligible blocks.
func (s *BlockSelection) FillerBlockCount() int {
	return len(s.order) - s.carrier
}

// IsCarrier reports whether the given block index carries frame bits.
func (s *BlockSelection) IsCarrier(block int) bool {
	return s.carrierSet.Get(block)
}

// expand turns a slice of block (pixel) indices into sample indices in scan
// order.
func expand(blocks []int, channels int) []int {
	samples := make([]int, 0, len(blocks)*channels)
	for _, b := range blocks {
		base := b * channels
		for c := 0; c < channels; c++ {
			samples = append(samples, base+c)
		}
	}
	return samples
}

// FrameScan returns the scan a frame is written to and read from: every block
// in permutation order. Readers stop wherever the frame's length field tells
// them to, so the filler suffix is simply never reached.
func (s *BlockSelection) FrameScan(channels int, bitDepth uint) Scan {
	return NewOrderedScan(expand(s.order, channels), bitDepth)
}

// FillerScan returns the scan over the filler-eligible suffix only.
func (s *BlockSelection) FillerScan(channels int, bitDepth uint) Scan {
	return NewOrderedScan(expand(s.order[s.carrier:], channels), bitDepth)
}
