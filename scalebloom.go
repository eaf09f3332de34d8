package scalebloom

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/scalebloom/internal/engine"
)

const version = "0.3.0"

// Version returns the library version.
func Version() string { return version }

// Filter is a scaling counting Bloom filter persisted in a single file.
//
// A Filter is not safe for concurrent mutation. Check may run concurrently
// with other Checks but not with Add, Delete, Flush or Close.
type Filter struct {
	eng          *engine.Engine
	path         string
	logger       *Logger
	metrics      MetricsCollector
	flushLimiter *rate.Limiter
	flushOnClose bool
}

// New creates a filter file at path sized for capacity elements at the given
// false-positive rate. An existing file at path is replaced.
//
// Arguments are validated before anything touches the filesystem; invalid
// values yield a *ConfigurationError.
func New(capacity int, errorRate float64, path string, optFns ...Option) (*Filter, error) {
	if err := engine.ValidateArgs(capacity, errorRate, path); err != nil {
		return nil, translateError(path, err)
	}
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	logger := o.logger.WithPath(path)

	eng, err := engine.Create(path, capacity, errorRate, o.engineOptions()...)
	if err != nil {
		err = translateError(path, err)
		logger.LogOpen("create", 0, 0, err)
		return nil, err
	}
	logger.LogOpen("create", eng.NumSubFilters(), 0, nil)
	return newFilter(eng, path, logger, o), nil
}

// Load reopens the filter file at path. The capacity and error rate stored
// in the file take precedence over the arguments, which are still validated.
// Both sequence numbers resume at the last flushed value.
func Load(capacity int, errorRate float64, path string, optFns ...Option) (*Filter, error) {
	if err := engine.ValidateArgs(capacity, errorRate, path); err != nil {
		return nil, translateError(path, err)
	}
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	return load(path, o, capacity, errorRate)
}

func load(path string, o options, capacity int, errorRate float64) (*Filter, error) {
	logger := o.logger.WithPath(path)

	eng, err := engine.Open(path, o.engineOptions()...)
	if err != nil {
		err = translateError(path, err)
		logger.LogOpen("load", 0, 0, err)
		return nil, err
	}
	if capacity > 0 && (eng.Capacity() != uint64(capacity) || eng.ErrorRate() != errorRate) {
		logger.Debug("stored parameters override arguments",
			"capacity", eng.Capacity(),
			"error_rate", eng.ErrorRate(),
		)
	}
	logger.LogOpen("load", eng.NumSubFilters(), eng.DiskSeqnum(), nil)
	return newFilter(eng, path, logger, o), nil
}

func newFilter(eng *engine.Engine, path string, logger *Logger, o options) *Filter {
	f := &Filter{
		eng:          eng,
		path:         path,
		logger:       logger,
		metrics:      o.metricsCollector,
		flushOnClose: o.flushOnClose,
	}
	if o.autoFlush > 0 {
		f.flushLimiter = rate.NewLimiter(rate.Every(o.autoFlush), 1)
		// The first automatic flush happens one interval after creation.
		f.flushLimiter.Allow()
	}
	return f
}

// Add inserts key. id is a caller-chosen, typically increasing, identifier
// that Delete uses to locate the sub-filter holding the key.
//
// Add never fails because the filter is full; it grows instead. An error
// means nothing was applied.
func (f *Filter) Add(key []byte, id uint64) error {
	start := time.Now()
	before := f.eng.NumSubFilters()

	err := translateError(f.path, f.eng.Add(key, id))

	f.metrics.RecordAdd(time.Since(start), err)
	f.logger.LogAdd(id, err)
	if err != nil {
		return err
	}
	if n := f.eng.NumSubFilters(); n != before {
		f.metrics.RecordScale(n)
		f.logger.LogScale(n)
	}
	f.maybeAutoFlush()
	return nil
}

// Delete removes one occurrence of key, preferring the copy added under an
// id range that covers id. Deleting a key that
// is not present is not an error; the filter is left unchanged except for
// the mutation counter.
func (f *Filter) Delete(key []byte, id uint64) error {
	start := time.Now()

	removed, err := f.eng.Delete(key, id)
	err = translateError(f.path, err)

	f.metrics.RecordDelete(removed, time.Since(start), err)
	f.logger.LogDelete(id, removed, err)
	if err != nil {
		return err
	}
	f.maybeAutoFlush()
	return nil
}

// Check reports whether key may have been added. False means definitely
// not present. A closed filter reports false.
func (f *Filter) Check(key []byte) bool {
	start := time.Now()
	hit := f.eng.Check(key)
	f.metrics.RecordCheck(hit, time.Since(start))
	return hit
}

// Contains is an alias for Check.
func (f *Filter) Contains(key []byte) bool {
	return f.Check(key)
}

// Flush makes every mutation applied so far durable. Afterwards
// DiskSeqnum equals MemSeqnum. Flushing with nothing pending is a no-op.
// A failed flush leaves the filter unchanged and can be retried.
func (f *Filter) Flush() error {
	if f.eng.Closed() {
		return translateError(f.path, engine.ErrClosed)
	}
	if f.eng.MemSeqnum() == f.eng.DiskSeqnum() {
		return nil
	}

	start := time.Now()
	err := translateError(f.path, f.eng.Flush())
	f.metrics.RecordFlush(time.Since(start), err)
	f.logger.LogFlush(f.eng.DiskSeqnum(), err)
	return err
}

func (f *Filter) maybeAutoFlush() {
	if f.flushLimiter == nil || !f.flushLimiter.Allow() {
		return
	}
	// Errors are logged and counted by Flush.
	_ = f.Flush()
}

// MemSeqnum returns the number of mutations applied, including those loaded
// from the file.
func (f *Filter) MemSeqnum() uint64 { return f.eng.MemSeqnum() }

// DiskSeqnum returns MemSeqnum as of the last successful flush.
func (f *Filter) DiskSeqnum() uint64 { return f.eng.DiskSeqnum() }

// Path returns the backing file path.
func (f *Filter) Path() string { return f.path }
