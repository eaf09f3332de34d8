// Package scalebloom provides a scaling, counting Bloom filter persisted in
// a single memory-mapped file.
//
// A filter answers "possibly present" or "definitely absent" for byte-string
// keys, supports removal, and never fills up: once the active sub-filter
// crosses its fill threshold, a larger sub-filter with a tighter error budget
// is appended, keeping the aggregate false-positive rate bounded by the
// configured rate.
//
// # Quick Start
//
//	f, err := scalebloom.New(100_000, 0.01, "/var/lib/app/seen.bloom")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	_ = f.Add([]byte("user:42"), 1)
//	f.Check([]byte("user:42"))  // true
//	_ = f.Delete([]byte("user:42"), 1)
//
// # Durability
//
// Mutations are applied directly to the mapped file. Flush makes them
// durable and records the mutation counter in the header:
//
//	_ = f.Flush()
//	f.DiskSeqnum() == f.MemSeqnum()  // true
//
// After a crash, Load resumes from the last flushed state and both sequence
// numbers report the last flushed counter. Callers that log mutations
// elsewhere replay everything after DiskSeqnum.
//
// # Removal
//
// Every Add carries a caller-chosen id, usually monotonically increasing.
// Delete decrements only the newest sub-filter that reports the key. When
// the key sits in several sub-filters, one whose id range covers the given id
// is preferred; an id outside every range still removes the key.
//
// # Concurrency
//
// A Filter is not safe for concurrent mutation; callers serialize Add,
// Delete, Flush and Close.
package scalebloom
