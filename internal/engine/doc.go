// Package engine implements the file-backed scaling counting Bloom filter.
//
// A filter file is a header page followed by one page-aligned counter region
// per sub-filter:
//   - Mutations go straight into the shared mapping and mark pages dirty
//   - Flush writes back the dirty pages, then the header, each behind fsync
//   - Scaling grows the file and remaps it; existing regions never move
//   - The header only changes at create and flush, so a crash leaves the
//     last flushed header and its disk seqnum intact
package engine
