// Package counting implements a counting Bloom filter laid over a byte region.
//
// Counters are 4 bits wide and packed two per byte, low nibble first:
//
//	byte:    [ c1 | c0 ] [ c3 | c2 ] ...
//	bits:     7..4 3..0
//
// The package does not allocate counter storage; the caller hands it a region,
// typically a slice of a shared file mapping, so that every mutation lands in
// the mapped bytes without a serialization step. Each byte write is reported to
// a Marker with its absolute file offset, which lets the owner flush only the
// pages that changed.
//
// Counters saturate at MaxCount instead of wrapping. Remove decrements any
// counter above zero, so MaxCount adds followed by as many removes drain a
// position back to zero.
package counting
