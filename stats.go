package scalebloom

// SubFilterStats describes one sub-filter.
type SubFilterStats struct {
	Capacity  uint64
	Counters  uint64
	K         int
	Adds      uint64
	Fill      float64
	ErrorRate float64
	Sealed    bool

	// EstimatedFalsePositiveRate is computed from k, the counter count and
	// the number of adds.
	EstimatedFalsePositiveRate float64
}

// Stats is a point-in-time view of a Filter.
type Stats struct {
	Capacity   uint64
	ErrorRate  float64
	MemSeqnum  uint64
	DiskSeqnum uint64
	TotalAdds  uint64
	FileSize   int64
	DirtyPages uint64
	SubFilters []SubFilterStats

	EstimatedFalsePositiveRate float64
}

// Stats returns the current filter statistics.
func (f *Filter) Stats() Stats {
	es := f.eng.Stats()
	st := Stats{
		Capacity:                   es.Capacity,
		ErrorRate:                  es.ErrorRate,
		MemSeqnum:                  es.MemSeqnum,
		DiskSeqnum:                 es.DiskSeqnum,
		FileSize:                   es.FileSize,
		DirtyPages:                 es.DirtyPages,
		EstimatedFalsePositiveRate: es.EstimatedFalsePositiveRate,
		SubFilters:                 make([]SubFilterStats, len(es.SubFilters)),
	}
	for i, s := range es.SubFilters {
		st.SubFilters[i] = SubFilterStats{
			Capacity:                   s.Capacity,
			Counters:                   s.Counters,
			K:                          int(s.K),
			Adds:                       s.Adds,
			Fill:                       s.Fill,
			ErrorRate:                  s.ErrorRate,
			Sealed:                     s.Sealed,
			EstimatedFalsePositiveRate: s.EstimatedFalsePositiveRate,
		}
		st.TotalAdds += s.Adds
	}
	return st
}
