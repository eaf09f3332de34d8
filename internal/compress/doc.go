// Package compress frames a byte stream as independently compressed blocks.
//
// Each block is [rawSize u32][storedSize u32][payload]. A storedSize of zero
// means the payload is the raw bytes; compression is skipped for blocks that
// do not shrink below 90% of their size.
package compress
