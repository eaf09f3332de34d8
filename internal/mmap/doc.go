// Package mmap provides shared memory-mapped access to a backing file.
//
// # Overview
//
// A filter file is mapped MAP_SHARED so that counter updates made through the
// returned byte slice land in the page cache of the file itself. Durability is
// then a matter of writing back the dirty ranges (Sync, msync(2) with MS_SYNC)
// followed by an fsync of the descriptor, which the owner performs.
//
// # Usage
//
//	m, err := mmap.Map(f.Fd(), size, mmap.ReadWrite)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	data[4096] = 1
//	_ = m.Sync(4096, 1) // rounded out to whole pages
//
// A mapping cannot grow. To extend the file, truncate it, Map it again and
// Close the old mapping; slices taken from the old mapping become invalid.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2), madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile/FlushViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap
