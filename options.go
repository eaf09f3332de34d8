package scalebloom

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hupe1980/scalebloom/internal/engine"
	"github.com/hupe1980/scalebloom/internal/fs"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	policy           engine.Policy
	autoFlush        time.Duration
	flushOnClose     bool
	fsys             fs.FileSystem
	syncConcurrency  int
}

// Option configures Filter constructor/load behavior.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &scalebloom.BasicMetricsCollector{}
//	f, _ := scalebloom.New(1000, 0.01, "keys.bloom", scalebloom.WithMetricsCollector(metrics))
//	// ... use f ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := scalebloom.NewJSONLogger(slog.LevelInfo)
//	f, _ := scalebloom.New(1000, 0.01, "keys.bloom", scalebloom.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithFillThreshold sets the fill ratio above which the active sub-filter is
// sealed and a new one is appended. Must be in (0, 1]. Default: 0.8.
func WithFillThreshold(threshold float64) Option {
	return func(o *options) {
		o.policy.FillThreshold = threshold
	}
}

// WithGrowthFactor sets how much larger each new sub-filter is than the
// previous one. Must be at least 2. Default: 2.
func WithGrowthFactor(factor int) Option {
	return func(o *options) {
		if factor < 0 {
			factor = 0
		}
		o.policy.GrowthFactor = uint64(factor)
	}
}

// WithTighteningRatio sets the factor applied to the error budget of each new
// sub-filter. Must be in (0, 1). Default: 0.5.
func WithTighteningRatio(ratio float64) Option {
	return func(o *options) {
		o.policy.TighteningRatio = ratio
	}
}

// WithAutoFlush flushes after a mutation at most once per interval.
// Flush errors are logged and reported to the metrics collector; the
// mutation itself still succeeds. Zero disables auto-flush (default).
func WithAutoFlush(every time.Duration) Option {
	return func(o *options) {
		o.autoFlush = every
	}
}

// WithFlushOnClose makes Close flush pending mutations before releasing the
// file. By default Close does not flush.
func WithFlushOnClose(enabled bool) Option {
	return func(o *options) {
		o.flushOnClose = enabled
	}
}

// WithFileSystem replaces the file system used for the backing file.
// Intended for fault injection in tests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithSyncConcurrency bounds how many dirty page runs Flush writes back in
// parallel. Default: 4.
func WithSyncConcurrency(n int) Option {
	return func(o *options) {
		o.syncConcurrency = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		policy:           engine.DefaultPolicy(),
		fsys:             fs.Default,
		syncConcurrency:  4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) validate() error {
	p := o.policy
	if math.IsNaN(p.FillThreshold) || p.FillThreshold <= 0 || p.FillThreshold > 1 {
		return configErr("fill threshold", "must be in (0, 1]")
	}
	if p.GrowthFactor < engine.MinGrowthFactor {
		return configErr("growth factor", fmt.Sprintf("must be at least %d", engine.MinGrowthFactor))
	}
	if math.IsNaN(p.TighteningRatio) || p.TighteningRatio <= 0 || p.TighteningRatio >= 1 {
		return configErr("tightening ratio", "must be in (0, 1)")
	}
	if o.autoFlush < 0 {
		return configErr("auto flush interval", "must not be negative")
	}
	if o.syncConcurrency < 1 {
		return configErr("sync concurrency", "must be at least 1")
	}
	if o.fsys == nil {
		o.fsys = fs.Default
	}
	return nil
}

func (o *options) engineOptions() []engine.Option {
	return []engine.Option{
		engine.WithLogger(o.logger.Logger),
		engine.WithPolicy(o.policy),
		engine.WithFileSystem(o.fsys),
		engine.WithSyncConcurrency(o.syncConcurrency),
	}
}
