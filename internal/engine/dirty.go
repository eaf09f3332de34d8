package engine

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// pageRun is a contiguous range of dirty pages [start, start+count).
type pageRun struct {
	start uint32
	count uint32
}

func (r pageRun) offset() int { return int(r.start) * PageSize }
func (r pageRun) length() int { return int(r.count) * PageSize }

// dirtyPages records which PageSize pages of the file were written since the
// last successful flush. It implements counting.Marker.
type dirtyPages struct {
	rb *roaring.Bitmap
}

func newDirtyPages() *dirtyPages {
	return &dirtyPages{rb: roaring.New()}
}

// MarkDirty marks the page containing file offset off.
func (d *dirtyPages) MarkDirty(off int64) {
	d.rb.Add(uint32(off / PageSize))
}

// Len returns the number of dirty pages.
func (d *dirtyPages) Len() uint64 {
	return d.rb.GetCardinality()
}

// Runs coalesces the dirty pages into ascending contiguous runs.
func (d *dirtyPages) Runs() []pageRun {
	var runs []pageRun
	it := d.rb.Iterator()
	for it.HasNext() {
		p := it.Next()
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == p {
			runs[n-1].count++
			continue
		}
		runs = append(runs, pageRun{start: p, count: 1})
	}
	return runs
}

// Clear forgets every dirty page.
func (d *dirtyPages) Clear() {
	d.rb.Clear()
}
