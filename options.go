package decaf

import (
	"log/slog"

	"github.com/hupe1980/decaf/unit"
)

type options struct {
	threads           int
	skipExtraEntries  bool
	sourceLineMapping bool
	props             map[string]any
	metadataLoader    unit.MetadataLoader
	metricsCollector  MetricsCollector
	logger            *Logger
}

// Option configures Decaf constructor behavior.
//
// Options are applied once at construction time; the resulting context is
// immutable for the lifetime of the run.
type Option func(*options)

// WithThreads configures how many classes of one archive unit are
// decompiled concurrently.
//
// Folder units are always written sequentially; the limit applies to the
// worker group of archive units. Values below 1 fall back to
// runtime.GOMAXPROCS(0).
func WithThreads(threads int) Option {
	return func(o *options) {
		o.threads = threads
	}
}

// WithSkipExtraEntries drops passthrough entries from source archives and
// folders instead of copying them into the output. Abstract parameter
// metadata is still consumed.
func WithSkipExtraEntries(skip bool) Option {
	return func(o *options) {
		o.skipExtraEntries = skip
	}
}

// WithSourceLineMapping records original-to-decompiled line mappings and
// hands them to the output sink for folder units.
func WithSourceLineMapping(enabled bool) Option {
	return func(o *options) {
		o.sourceLineMapping = enabled
	}
}

// WithProperty sets one free-form decompiler property. Properties are
// visible to the data provider through the context.
func WithProperty(key string, value any) Option {
	return func(o *options) {
		if o.props == nil {
			o.props = make(map[string]any)
		}
		o.props[key] = value
	}
}

// WithMetadataLoader configures the consumer for abstract parameter
// metadata discovered while registering entries. Pass nil to ignore such
// metadata.
func WithMetadataLoader(loader unit.MetadataLoader) Option {
	return func(o *options) {
		o.metadataLoader = loader
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &decaf.BasicMetricsCollector{}
//	d, _ := decaf.New(provider, writer, decaf.WithMetricsCollector(metrics))
//	// ... use d ...
//	stats := metrics.GetStats()
//	fmt.Printf("Units: %d, Avg latency: %dns\n", stats.UnitSaveCount, stats.UnitSaveAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := decaf.NewJSONLogger(slog.LevelInfo)
//	d, _ := decaf.New(provider, writer, decaf.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
