package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/hupe1980/scalebloom/internal/conv"
	"github.com/hupe1980/scalebloom/internal/counting"
	"github.com/hupe1980/scalebloom/internal/fs"
	"github.com/hupe1980/scalebloom/internal/hash"
)

// subFilter is one counting filter plus its persisted descriptor.
type subFilter struct {
	desc Descriptor
	f    *counting.Filter
}

func (s *subFilter) covers(id uint64) bool {
	return s.desc.Adds > 0 && id >= s.desc.MinID && id <= s.desc.MaxID
}

func (s *subFilter) recordAdd(id uint64) {
	if s.desc.Adds == 0 || id < s.desc.MinID {
		s.desc.MinID = id
	}
	if s.desc.Adds == 0 || id > s.desc.MaxID {
		s.desc.MaxID = id
	}
	s.desc.Adds++
}

// Engine is a scaling counting Bloom filter backed by a memory-mapped file.
//
// Engine performs no locking: at most one goroutine may mutate it at a time,
// and Check may only run concurrently with other Checks.
type Engine struct {
	store     *store
	capacity  uint64
	errorRate float64
	subs      []*subFilter
	dirty     *dirtyPages
	tracker   Tracker
	closed    bool

	policy          Policy
	fs              fs.FileSystem
	logger          *slog.Logger
	syncConcurrency int
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPolicy sets the scaling policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithFileSystem sets the file system used for the backing file.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(e *Engine) {
		if fsys != nil {
			e.fs = fsys
		}
	}
}

// WithSyncConcurrency bounds the number of dirty page runs written back in
// parallel during Flush.
func WithSyncConcurrency(n int) Option {
	return func(e *Engine) {
		e.syncConcurrency = n
	}
}

func newEngine(opts []Option) (*Engine, error) {
	e := &Engine{
		dirty:           newDirtyPages(),
		policy:          DefaultPolicy(),
		fs:              fs.Default,
		logger:          slog.New(slog.DiscardHandler),
		syncConcurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.policy.validate(); err != nil {
		return nil, err
	}
	if e.syncConcurrency < 1 {
		return nil, &ArgumentError{Field: "sync concurrency", Reason: "must be at least 1"}
	}
	return e, nil
}

// ValidateArgs checks construction arguments without touching the filesystem.
func ValidateArgs(capacity int, errorRate float64, path string) error {
	if capacity < 1 {
		return &ArgumentError{Field: "capacity", Reason: "must be greater than zero"}
	}
	if math.IsNaN(errorRate) || errorRate < 0 || errorRate > 1 {
		return &ArgumentError{Field: "error rate", Reason: "must be between 0 and 1"}
	}
	if path == "" {
		return &ArgumentError{Field: "filepath", Reason: "filepath required"}
	}
	return nil
}

// Create creates a new filter file at path, replacing any existing file.
// On failure nothing stays open and the partially written file is removed.
func Create(path string, capacity int, errorRate float64, opts ...Option) (*Engine, error) {
	if err := ValidateArgs(capacity, errorRate, path); err != nil {
		return nil, err
	}
	e, err := newEngine(opts)
	if err != nil {
		return nil, err
	}
	c, err := conv.IntToUint64(capacity)
	if err != nil {
		return nil, &ArgumentError{Field: "capacity", Reason: err.Error()}
	}
	e.capacity = c
	e.errorRate = errorRate

	g := e.policy.plan(0, e.capacity, e.errorRate)
	length := regionLength(g)

	st, err := createStore(e.fs, path, HeaderSize+length, e.syncConcurrency)
	if err != nil {
		return nil, err
	}
	e.store = st

	fail := func(err error) (*Engine, error) {
		_ = st.close()
		_ = e.fs.Remove(path)
		return nil, err
	}

	if err := e.appendSubFilter(g, HeaderSize, length); err != nil {
		return fail(err)
	}

	e.tracker = NewTracker(0)
	e.header().MarshalTo(st.header())
	if err := st.syncHeader(); err != nil {
		return fail(err)
	}
	if err := st.barrier(); err != nil {
		return fail(err)
	}
	if err := syncParentDir(e.fs, path); err != nil {
		return fail(err)
	}

	e.logger.Info("filter created",
		"path", path,
		"capacity", capacity,
		"error_rate", errorRate,
		"counters", g.Counters,
		"k", g.K,
	)
	return e, nil
}

// Open reopens the filter file at path. Both sequence numbers start at the
// last flushed value recorded in the header.
func Open(path string, opts ...Option) (*Engine, error) {
	if path == "" {
		return nil, &ArgumentError{Field: "filepath", Reason: "filepath required"}
	}
	e, err := newEngine(opts)
	if err != nil {
		return nil, err
	}

	st, err := openStore(e.fs, path, e.syncConcurrency)
	if err != nil {
		return nil, err
	}
	e.store = st

	h, err := DecodeHeader(st.header(), st.size)
	if err != nil {
		_ = st.close()
		return nil, err
	}

	e.capacity = h.Capacity
	e.errorRate = h.ErrorRate
	e.tracker = NewTracker(h.DiskSeqnum)

	data := st.bytes()
	for i, d := range h.Descriptors {
		base, err := conv.Uint64ToInt64(d.Offset)
		if err != nil {
			_ = st.close()
			return nil, corruptf("sub-filter %d: %v", i, err)
		}
		f, err := counting.New(data[d.Offset:d.Offset+d.Length], d.Counters, d.K, base, e.dirty)
		if err != nil {
			_ = st.close()
			return nil, corruptf("sub-filter %d: %v", i, err)
		}
		e.subs = append(e.subs, &subFilter{desc: d, f: f})
	}

	e.logger.Info("filter opened",
		"path", path,
		"sub_filters", len(e.subs),
		"seqnum", h.DiskSeqnum,
		"size", st.size,
	)
	return e, nil
}

func regionLength(g counting.Geometry) int64 {
	return (int64(counting.BytesFor(g.Counters)) + PageSize - 1) / PageSize * PageSize
}

func (e *Engine) appendSubFilter(g counting.Geometry, off, length int64) error {
	region := e.store.bytes()[off : off+length]
	f, err := counting.New(region, g.Counters, g.K, off, e.dirty)
	if err != nil {
		return err
	}
	e.subs = append(e.subs, &subFilter{
		desc: Descriptor{
			Capacity:  g.Capacity,
			Counters:  g.Counters,
			Offset:    uint64(off),
			Length:    uint64(length),
			ErrorRate: g.ErrorRate,
			K:         g.K,
		},
		f: f,
	})
	return nil
}

func (e *Engine) header() *Header {
	h := &Header{
		Capacity:    e.capacity,
		ErrorRate:   e.errorRate,
		MemSeqnum:   e.tracker.Mem(),
		DiskSeqnum:  e.tracker.Disk(),
		Descriptors: make([]Descriptor, len(e.subs)),
	}
	for i, s := range e.subs {
		h.Descriptors[i] = s.desc
	}
	return h
}

func (e *Engine) active() *subFilter {
	return e.subs[len(e.subs)-1]
}

// canScale reports whether the active sub-filter is over its threshold and a
// descriptor slot is still free.
func (e *Engine) canScale() bool {
	a := e.active()
	return len(e.subs) < MaxSubFilters && e.policy.shouldSeal(a.desc.Adds, a.desc.Capacity)
}

// scale seals the active sub-filter and appends a new one at the end of the
// file. On failure the engine is unchanged.
func (e *Engine) scale() error {
	i := len(e.subs)
	g := e.policy.plan(i, e.capacity, e.errorRate)
	off := e.store.size
	length := regionLength(g)

	unmapErr, err := e.store.grow(off + length)
	if err != nil {
		return err
	}
	if unmapErr != nil {
		e.logger.Warn("releasing previous mapping", "path", e.store.path, "error", unmapErr)
	}

	data := e.store.bytes()
	for _, s := range e.subs {
		if err := s.f.Rebind(data[s.desc.Offset : s.desc.Offset+s.desc.Length]); err != nil {
			return err
		}
	}

	prev := e.active()
	if err := e.appendSubFilter(g, off, length); err != nil {
		return err
	}
	prev.desc.Sealed = true

	e.logger.Debug("sub-filter sealed",
		"index", i-1,
		"adds", prev.desc.Adds,
		"next_capacity", g.Capacity,
		"next_error_rate", g.ErrorRate,
		"next_k", g.K,
	)
	return nil
}

// Add inserts key into the active sub-filter. It never fails for capacity:
// the filter grows instead.
func (e *Engine) Add(key []byte, id uint64) error {
	if e.closed {
		return ErrClosed
	}

	// A previous eager scale failed; it must succeed before the add.
	if e.canScale() {
		if err := e.scale(); err != nil {
			return err
		}
	}

	p := hash.Sum(key)
	a := e.active()
	a.f.Add(p)
	a.recordAdd(id)
	e.tracker.Advance()

	if e.canScale() {
		if err := e.scale(); err != nil {
			e.logger.Warn("deferring sub-filter scale", "sub_filters", len(e.subs), "error", err)
		}
	}
	return nil
}

// Check reports whether key may be present in any sub-filter, newest first.
func (e *Engine) Check(key []byte) bool {
	if e.closed {
		return false
	}
	p := hash.Sum(key)
	for i := len(e.subs) - 1; i >= 0; i-- {
		if e.subs[i].f.Check(p) {
			return true
		}
	}
	return false
}

// Delete removes key from at most one sub-filter, the newest one that
// currently reports the key. Sub-filters whose id range covers id are tried
// first, so a key added several times under different ids loses the copy
// the id belongs to. It reports whether a sub-filter was decremented.
// Deleting an absent key is a no-op, not an error; the mutation is still
// counted.
func (e *Engine) Delete(key []byte, id uint64) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}

	p := hash.Sum(key)
	s := e.deleteTarget(p, id)
	if s != nil {
		s.f.Remove(p)
	}
	e.tracker.Advance()
	return s != nil, nil
}

func (e *Engine) deleteTarget(p hash.Pair, id uint64) *subFilter {
	var fallback *subFilter
	for i := len(e.subs) - 1; i >= 0; i-- {
		s := e.subs[i]
		if !s.f.Check(p) {
			continue
		}
		if s.covers(id) {
			return s
		}
		if fallback == nil {
			fallback = s
		}
	}
	return fallback
}

// Flush makes every applied mutation durable and advances the disk seqnum.
// On failure the in-memory state is unchanged and Flush may be retried.
func (e *Engine) Flush() error {
	if e.closed {
		return ErrClosed
	}
	if !e.tracker.Pending() {
		return nil
	}

	mem := e.tracker.Mem()
	if err := e.store.syncRuns(e.dirty.Runs()); err != nil {
		return err
	}
	if err := e.store.barrier(); err != nil {
		return err
	}

	page := e.store.header()
	prev := make([]byte, HeaderSize)
	copy(prev, page)

	h := e.header()
	h.MemSeqnum = mem
	h.DiskSeqnum = mem
	h.MarshalTo(page)

	if err := e.store.syncHeader(); err != nil {
		copy(page, prev)
		return err
	}
	if err := e.store.barrier(); err != nil {
		copy(page, prev)
		return err
	}

	e.dirty.Clear()
	e.tracker.MarkFlushed(mem)
	return nil
}

// WriteTo writes the raw file image to w. Callers flush first to obtain a
// consistent image.
func (e *Engine) WriteTo(w io.Writer) (int64, error) {
	if e.closed {
		return 0, ErrClosed
	}
	n, err := w.Write(e.store.bytes())
	return int64(n), err
}

// Close releases the mapping and the file descriptor. It does not flush.
// Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.store.close(); err != nil {
		return fmt.Errorf("close %s: %w", e.store.path, err)
	}
	return nil
}

// MemSeqnum returns the number of mutations applied.
func (e *Engine) MemSeqnum() uint64 { return e.tracker.Mem() }

// DiskSeqnum returns the mem seqnum as of the last successful flush.
func (e *Engine) DiskSeqnum() uint64 { return e.tracker.Disk() }

// NumSubFilters returns the number of sub-filters.
func (e *Engine) NumSubFilters() int { return len(e.subs) }

// Path returns the backing file path.
func (e *Engine) Path() string { return e.store.path }

// Capacity returns the target capacity.
func (e *Engine) Capacity() uint64 { return e.capacity }

// ErrorRate returns the target error rate.
func (e *Engine) ErrorRate() float64 { return e.errorRate }

// Closed reports whether Close was called.
func (e *Engine) Closed() bool { return e.closed }

// SubFilterStats describes one sub-filter.
type SubFilterStats struct {
	Capacity  uint64
	Counters  uint64
	K         uint32
	Adds      uint64
	Fill      float64
	ErrorRate float64
	Sealed    bool
	// EstimatedFalsePositiveRate is derived from k, m and the adds applied.
	EstimatedFalsePositiveRate float64
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Capacity   uint64
	ErrorRate  float64
	MemSeqnum  uint64
	DiskSeqnum uint64
	FileSize   int64
	DirtyPages uint64
	SubFilters []SubFilterStats
	// EstimatedFalsePositiveRate bounds the OR over all sub-filters.
	EstimatedFalsePositiveRate float64
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	st := Stats{
		Capacity:   e.capacity,
		ErrorRate:  e.errorRate,
		MemSeqnum:  e.tracker.Mem(),
		DiskSeqnum: e.tracker.Disk(),
		DirtyPages: e.dirty.Len(),
	}
	if !e.closed {
		st.FileSize = e.store.size
	}

	miss := 1.0
	for _, s := range e.subs {
		est := counting.EstimateFalsePositiveRate(s.desc.K, s.desc.Counters, s.desc.Adds)
		st.SubFilters = append(st.SubFilters, SubFilterStats{
			Capacity:                   s.desc.Capacity,
			Counters:                   s.desc.Counters,
			K:                          s.desc.K,
			Adds:                       s.desc.Adds,
			Fill:                       float64(s.desc.Adds) / float64(s.desc.Capacity),
			ErrorRate:                  s.desc.ErrorRate,
			Sealed:                     s.desc.Sealed,
			EstimatedFalsePositiveRate: est,
		})
		miss *= 1 - est
	}
	st.EstimatedFalsePositiveRate = 1 - miss
	return st
}
