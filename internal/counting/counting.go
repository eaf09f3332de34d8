package counting

import (
	"errors"

	"github.com/hupe1980/scalebloom/internal/hash"
)

// MaxCount is the saturation value of a 4-bit counter.
const MaxCount = 0x0f

var (
	// ErrRegionTooSmall is returned when a region cannot hold the counters.
	ErrRegionTooSmall = errors.New("counting: region too small")
	// ErrBadGeometry is returned for m == 0 or k == 0.
	ErrBadGeometry = errors.New("counting: invalid geometry")
)

// Marker receives the absolute file offset of every counter byte written.
type Marker interface {
	MarkDirty(off int64)
}

// Filter is a counting Bloom filter over a caller-owned region.
type Filter struct {
	counters []byte
	m        uint64
	k        uint32
	base     int64
	dirty    Marker
}

// New binds a filter with m counters and k hashes to region.
// base is the file offset of region[0]; dirty may be nil.
func New(region []byte, m uint64, k uint32, base int64, dirty Marker) (*Filter, error) {
	if m == 0 || k == 0 {
		return nil, ErrBadGeometry
	}
	if uint64(len(region)) < BytesFor(m) {
		return nil, ErrRegionTooSmall
	}
	return &Filter{
		counters: region[:BytesFor(m)],
		m:        m,
		k:        k,
		base:     base,
		dirty:    dirty,
	}, nil
}

// Rebind points the filter at a new region holding the same counters, for
// example after the backing file was remapped.
func (f *Filter) Rebind(region []byte) error {
	if uint64(len(region)) < BytesFor(f.m) {
		return ErrRegionTooSmall
	}
	f.counters = region[:BytesFor(f.m)]
	return nil
}

// Counters returns m.
func (f *Filter) Counters() uint64 { return f.m }

// K returns the number of hash functions.
func (f *Filter) K() uint32 { return f.k }

// Add increments the counter at every probe position, saturating at MaxCount.
func (f *Filter) Add(p hash.Pair) {
	for i := uint32(0); i < f.k; i++ {
		j := p.Position(i, f.m)
		if c := f.Get(j); c < MaxCount {
			f.set(j, c+1)
		}
	}
}

// Check reports whether every probe position is non-zero.
func (f *Filter) Check(p hash.Pair) bool {
	for i := uint32(0); i < f.k; i++ {
		if f.Get(p.Position(i, f.m)) == 0 {
			return false
		}
	}
	return true
}

// Remove decrements every probe position that is above zero, saturated
// counters included. Zero counters are left untouched.
func (f *Filter) Remove(p hash.Pair) {
	for i := uint32(0); i < f.k; i++ {
		j := p.Position(i, f.m)
		if c := f.Get(j); c > 0 {
			f.set(j, c-1)
		}
	}
}

// Get returns counter j.
func (f *Filter) Get(j uint64) uint8 {
	b := f.counters[j>>1]
	if j&1 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

// NonZero returns the number of non-zero counters.
func (f *Filter) NonZero() uint64 {
	var n uint64
	for j := uint64(0); j < f.m; j++ {
		if f.Get(j) != 0 {
			n++
		}
	}
	return n
}

func (f *Filter) set(j uint64, v uint8) {
	idx := j >> 1
	b := f.counters[idx]
	if j&1 == 0 {
		b = (b & 0xf0) | (v & 0x0f)
	} else {
		b = (b & 0x0f) | (v << 4)
	}
	f.counters[idx] = b
	if f.dirty != nil {
		f.dirty.MarkDirty(f.base + int64(idx))
	}
}
