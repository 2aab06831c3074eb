package unit

import (
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dctx := NewContext()

		assert.Equal(t, runtime.GOMAXPROCS(0), dctx.Threads)
		assert.False(t, dctx.SkipExtraEntries)
		assert.False(t, dctx.SourceLineMapping)
		assert.NotNil(t, dctx.Props)
		assert.NotNil(t, dctx.Logger)
		assert.Nil(t, dctx.Metadata)
		assert.NotNil(t, dctx.Mapper)
	})

	t.Run("options are applied", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		loader := &fakeLoader{}

		dctx := NewContext(func(o *ContextOptions) {
			o.Threads = 3
			o.SkipExtraEntries = true
			o.SourceLineMapping = true
			o.Props = map[string]any{"indent": 2}
			o.Logger = logger
			o.Metadata = loader
		})

		assert.Equal(t, 3, dctx.Threads)
		assert.True(t, dctx.SkipExtraEntries)
		assert.True(t, dctx.SourceLineMapping)
		assert.Equal(t, map[string]any{"indent": 2}, dctx.Props)
		assert.Same(t, logger, dctx.Logger)
		assert.Same(t, loader, dctx.Metadata.(*fakeLoader))
	})

	t.Run("non positive thread counts fall back", func(t *testing.T) {
		dctx := NewContext(func(o *ContextOptions) {
			o.Threads = -1
		})

		assert.Equal(t, runtime.GOMAXPROCS(0), dctx.Threads)
	})
}

func TestContext_Clone(t *testing.T) {
	dctx := NewContext(func(o *ContextOptions) {
		o.Threads = 2
		o.SourceLineMapping = true
	})
	dctx.Props["banner"] = "original"
	dctx.Mapper.AddMapping(1, 2)

	clone := dctx.Clone()

	assert.Equal(t, 2, clone.Threads)
	assert.True(t, clone.SourceLineMapping)
	assert.Same(t, dctx.Logger, clone.Logger)

	// the property map is a snapshot in both directions
	clone.Props["banner"] = "mutated"
	clone.Props["extra"] = true
	assert.Equal(t, "original", dctx.Props["banner"])
	assert.NotContains(t, dctx.Props, "extra")

	dctx.Props["late"] = true
	assert.NotContains(t, clone.Props, "late")

	// the mapper starts fresh
	require.NotSame(t, dctx.Mapper, clone.Mapper)
	assert.Empty(t, clone.Mapper.Mapping())
	assert.Equal(t, []int{1, 2}, dctx.Mapper.Mapping())
}

func TestSourceMapper(t *testing.T) {
	m := NewSourceMapper()
	assert.Empty(t, m.Mapping())

	m.AddMapping(10, 3)
	m.AddMapping(12, 4)
	assert.Equal(t, []int{10, 3, 12, 4}, m.Mapping())

	// the returned slice is a copy
	got := m.Mapping()
	got[0] = 99
	assert.Equal(t, []int{10, 3, 12, 4}, m.Mapping())

	m.Reset()
	assert.Empty(t, m.Mapping())

	m.AddMapping(1, 1)
	assert.Equal(t, []int{1, 1}, m.Mapping())
}
