package engine

// Tracker holds the two sequence numbers of a filter.
//
// mem is the number of mutations applied in memory; disk is the value of mem
// as of the last successful flush. disk <= mem always holds.
type Tracker struct {
	mem  uint64
	disk uint64
}

// NewTracker starts both sequence numbers at the last flushed value.
func NewTracker(flushed uint64) Tracker {
	return Tracker{mem: flushed, disk: flushed}
}

// Advance records one applied mutation and returns the new mem seqnum.
func (t *Tracker) Advance() uint64 {
	t.mem++
	return t.mem
}

// Mem returns the in-memory seqnum.
func (t *Tracker) Mem() uint64 { return t.mem }

// Disk returns the durably flushed seqnum.
func (t *Tracker) Disk() uint64 { return t.disk }

// Pending reports whether mutations were applied since the last flush.
func (t *Tracker) Pending() bool { return t.mem != t.disk }

// MarkFlushed records that everything up to seq is durable.
func (t *Tracker) MarkFlushed(seq uint64) {
	if seq > t.mem {
		seq = t.mem
	}
	if seq > t.disk {
		t.disk = seq
	}
}
