package hash

import (
	"github.com/cespare/xxhash/v2"
)

// salt is prepended to the key for the second hash so that h1 and h2 come
// from different xxHash64 streams.
var salt = [8]byte{0x9e, 0x37, 0x79, 0xb9, 0x7f, 0x4a, 0x7c, 0x15}

// Pair holds the two base hashes of a key.
type Pair struct {
	H1 uint64
	H2 uint64
}

// Sum hashes key into a Pair.
//
// H2 is forced odd so that consecutive probes never collapse onto a single
// position when m is a power of two.
func Sum(key []byte) Pair {
	d := xxhash.New()
	_, _ = d.Write(salt[:])
	_, _ = d.Write(key)

	return Pair{
		H1: xxhash.Sum64(key),
		H2: d.Sum64() | 1,
	}
}

// Position returns the i-th probe position in [0, m).
func (p Pair) Position(i uint32, m uint64) uint64 {
	return (p.H1 + uint64(i)*p.H2) % m
}

// Positions appends the k probe positions in [0, m) to dst and returns it.
// Positions may repeat for small m.
func (p Pair) Positions(k uint32, m uint64, dst []uint64) []uint64 {
	for i := uint32(0); i < k; i++ {
		dst = append(dst, p.Position(i, m))
	}
	return dst
}
