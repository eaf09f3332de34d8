// Package hash provides the hashing primitives of the filter engine.
//
// # Key hashing
//
// Positions inside a sub-filter are derived by double hashing. A key is hashed
// once into a pair (h1, h2) and the i-th position of a sub-filter with m
// counters is
//
//	(h1 + i*h2) mod m,  i in [0, k)
//
// The pair is computed with xxHash64 and is independent of the sub-filter, so
// one Sum call serves every sub-filter consulted by an operation. The scheme is
// deterministic across processes and platforms, which is what makes Remove and
// reopening a persisted file consistent.
//
//	p := hash.Sum([]byte("key"))
//	for _, pos := range p.Positions(k, m, buf[:0]) { ... }
//
// # CRC32-Castagnoli (CRC32C)
//
// Header integrity uses CRC32C (hardware accelerated on SSE4.2 and ARM CRC).
//
//	checksum := hash.CRC32C(page)
package hash
