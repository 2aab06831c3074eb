package unit

import (
	"io"
	"log/slog"
	"maps"
	"runtime"
	"slices"
)

// ContextOptions configures a decompilation context.
type ContextOptions struct {
	// Threads bounds how many classes of one archive unit are decompiled
	// concurrently. Defaults to runtime.GOMAXPROCS(0).
	Threads int

	// SkipExtraEntries drops passthrough entries instead of copying them
	// into the output. Metadata entries are still consumed.
	SkipExtraEntries bool

	// SourceLineMapping records original-to-decompiled line mappings and
	// hands them to the sink for folder units.
	SourceLineMapping bool

	// Props carries free-form decompiler properties.
	Props map[string]any

	// Logger receives pipeline diagnostics. Defaults to a discard logger.
	Logger *slog.Logger

	// Metadata consumes abstract parameter metadata discovered while
	// registering entries. Nil means such metadata is ignored.
	Metadata MetadataLoader
}

// Context carries the per-run settings of the save pipeline. Worker
// goroutines never share a context: each one leases a Clone, so Props and
// Mapper can be used without locking.
type Context struct {
	Threads           int
	SkipExtraEntries  bool
	SourceLineMapping bool
	Props             map[string]any
	Logger            *slog.Logger
	Metadata          MetadataLoader
	Mapper            *SourceMapper
}

// NewContext creates a context with the given options applied.
func NewContext(optFns ...func(o *ContextOptions)) *Context {
	opts := ContextOptions{
		Threads: runtime.GOMAXPROCS(0),
		Props:   make(map[string]any),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Threads <= 0 {
		opts.Threads = runtime.GOMAXPROCS(0)
	}
	if opts.Props == nil {
		opts.Props = make(map[string]any)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Context{
		Threads:           opts.Threads,
		SkipExtraEntries:  opts.SkipExtraEntries,
		SourceLineMapping: opts.SourceLineMapping,
		Props:             opts.Props,
		Logger:            opts.Logger,
		Metadata:          opts.Metadata,
		Mapper:            NewSourceMapper(),
	}
}

// Clone returns a context for one worker: settings and logger are shared,
// the property map is copied and the source mapper starts fresh.
func (c *Context) Clone() *Context {
	return &Context{
		Threads:           c.Threads,
		SkipExtraEntries:  c.SkipExtraEntries,
		SourceLineMapping: c.SourceLineMapping,
		Props:             maps.Clone(c.Props),
		Logger:            c.Logger,
		Metadata:          c.Metadata,
		Mapper:            NewSourceMapper(),
	}
}

// SourceMapper collects the mapping between original and decompiled line
// numbers for the class currently being written. Not safe for concurrent
// use; every worker context owns its own mapper.
type SourceMapper struct {
	pairs []int
}

// NewSourceMapper creates an empty mapper.
func NewSourceMapper() *SourceMapper {
	return &SourceMapper{}
}

// AddMapping records that an original line ended up at a decompiled line.
func (m *SourceMapper) AddMapping(original, decompiled int) {
	m.pairs = append(m.pairs, original, decompiled)
}

// Mapping returns the recorded pairs as a flat slice of alternating
// original and decompiled line numbers.
func (m *SourceMapper) Mapping() []int {
	return slices.Clone(m.pairs)
}

// Reset clears the mapper for the next class.
func (m *SourceMapper) Reset() {
	m.pairs = m.pairs[:0]
}
