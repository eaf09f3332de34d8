package mmap

import (
	"os"
	"sync/atomic"
)

var pageSize = os.Getpagesize()

// PageSize returns the system page size.
func PageSize() int { return pageSize }

// PageAlign rounds n up to a multiple of the page size.
func PageAlign(n int64) int64 {
	ps := int64(pageSize)
	return (n + ps - 1) / ps * ps
}

// Mapping represents a memory-mapped file.
// It owns the mapped byte slice and is responsible for unmapping it; it does
// not own the file descriptor.
type Mapping struct {
	data   []byte
	mode   Mode
	closed atomic.Bool

	// platform-specific release and flush hooks
	unmap func([]byte) error
	flush func(data []byte) error
}

// Map maps size bytes of the file behind fd starting at offset 0.
func Map(fd uintptr, size int, mode Mode) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmap, flush, err := osMap(fd, size, mode)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		mode:  mode,
		unmap: unmap,
		flush: flush,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m == nil || m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if m.unmap != nil && data != nil {
		return m.unmap(data)
	}
	return nil
}

// Bytes returns the mapped byte slice.
// Warning: The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	if m.closed.Load() {
		return 0
	}
	return len(m.data)
}

// Sync synchronously writes back [off, off+n) to the file. The range is
// widened to whole pages as msync(2) requires a page-aligned address.
func (m *Mapping) Sync(off, n int) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.mode != ReadWrite {
		return ErrReadOnly
	}
	if off < 0 || n < 0 || off+n > len(m.data) {
		return ErrOutOfBounds
	}
	if n == 0 {
		return nil
	}

	start := off / pageSize * pageSize
	end := off + n
	if rem := end % pageSize; rem != 0 {
		end += pageSize - rem
	}
	if end > len(m.data) {
		end = len(m.data)
	}
	return m.flush(m.data[start:end])
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}
