package pixelcargo

import (
	"math"
	mrand "math/rand/v2"
)

// ByteDistribution is an order-0 empirical distribution over byte values,
// built from a payload's byte histogram. Filler bytes drawn from it make the
// low bits of unused carrier regions statistically similar to the regions
// that really carry payload, so a detector comparing local byte entropy
// cannot tell the two apart.
type ByteDistribution struct {
	// cumulative[v] holds the count of bytes <= v; sampling is a binary
	// search over this table.
	cumulative [256]uint64
	total      uint64
}

// NewByteDistribution builds the distribution from data. An empty input
// degrades to the uniform distribution, which is the only honest prior.
func NewByteDistribution(data []byte) *ByteDistribution {
	var d ByteDistribution
	if len(data) == 0 {
		for i := range d.cumulative {
			d.cumulative[i] = uint64(i + 1)
		}
		d.total = 256
		return &d
	}

	var counts [256]uint64
	for _, b := range data {
		counts[b]++
	}
	var running uint64
	for i, c := range counts {
		running += c
		d.cumulative[i] = running
	}
	d.total = running
	return &d
}

// Sample draws one byte from the distribution using g.
func (d *ByteDistribution) Sample(g *mrand.ChaCha8) byte {
	target := uniformUint64(g, d.total)
	lo, hi := 0, 255
	for lo < hi {
		mid := (lo + hi) / 2
		if d.cumulative[mid] <= target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return byte(lo)
}

// Entropy returns the distribution's Shannon entropy in bits per byte.
func (d *ByteDistribution) Entropy() float64 {
	var h float64
	prev := uint64(0)
	for _, c := range d.cumulative {
		n := c - prev
		prev = c
		if n == 0 {
			continue
		}
		p := float64(n) / float64(d.total)
		h -= p * math.Log2(p)
	}
	return h
}

// ShannonEntropy returns the order-0 byte entropy of data in bits per byte.
func ShannonEntropy(data []byte) float64 {
	return NewByteDistribution(data).Entropy()
}

// FillUnused writes distribution-sampled bytes over every bit the writer's
// scan still addresses. Called on the filler suffix after the frame is
// written; it has no effect on decode correctness because decoders never
// read past the frame.
func FillUnused(w *StreamWriter, dist *ByteDistribution, g *mrand.ChaCha8) error {
	for {
		remaining := w.RemainingBits()
		if remaining == 0 {
			return nil
		}
		b := dist.Sample(g)
		if remaining < 8 {
			return w.WriteBits(uint64(b), uint(remaining))
		}
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
}
