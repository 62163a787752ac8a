// Bloom filter over catalog entry ids.
//
// Built when a catalog is opened, sized from the entry count in its header,
// and dropped on Close. A miss answers a title lookup without reading a
// single entry line. A hit still needs the scan, since two titles may share
// an id.
package ldt

import (
	"math"

	"github.com/zeebo/xxh3"
)

const (
	bloomK       = 7
	bloomMinBits = 1 << 13
	bloomFPRate  = 0.01
)

type bloom struct {
	bits  []uint64
	nbits uint64
}

// newBloom returns a filter for n entries at a 1% false positive rate.
func newBloom(n int64) *bloom {
	m := uint64(math.Ceil(-float64(n) * math.Log(bloomFPRate) / (math.Ln2 * math.Ln2)))
	m = max(m, bloomMinBits)
	words := (m + 63) / 64
	return &bloom{bits: make([]uint64, words), nbits: words * 64}
}

// Add records id.
func (b *bloom) Add(id string) {
	h1, h2 := bloomHashes(id)
	for i := range uint64(bloomK) {
		pos := (h1 + i*h2) % b.nbits
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Contains reports whether id may have been added. False is definite.
func (b *bloom) Contains(id string) bool {
	h1, h2 := bloomHashes(id)
	for i := range uint64(bloomK) {
		pos := (h1 + i*h2) % b.nbits
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// bloomHashes splits one 128-bit hash into the two halves used for
// double hashing. The step is forced odd so it never collapses to zero.
func bloomHashes(id string) (uint64, uint64) {
	h := xxh3.HashString128(id)
	return h.Lo, h.Hi | 1
}
