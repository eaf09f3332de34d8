package hash

import (
	"hash"
	"hash/crc32"
)

// crc32cTable is pre-computed for CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// CRC32CSkip computes the CRC32C of data as if the 4 bytes at off were zero.
// It is used for headers that embed their own checksum.
func CRC32CSkip(data []byte, off int) uint32 {
	var zero [4]byte
	h := crc32.New(crc32cTable)
	_, _ = h.Write(data[:off])
	_, _ = h.Write(zero[:])
	_, _ = h.Write(data[off+4:])
	return h.Sum32()
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}
