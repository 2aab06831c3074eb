package decaf

import (
	"context"
	"time"

	"github.com/hupe1980/decaf/output"
	"github.com/hupe1980/decaf/unit"
)

// Decaf orchestrates one decompilation run: it registers compilation
// units, hands decompiled content from the data provider to the output
// sink and tracks metrics along the way.
//
// Units are registered on one goroutine; Save and SaveAll may then be
// called from any goroutine, each unit at most once.
type Decaf struct {
	dctx     *unit.Context
	registry *unit.Registry
	saver    *unit.Saver
	metrics  MetricsCollector
	logger   *Logger
}

// New creates a Decaf instance that reads decompiled output from provider
// and writes it through writer.
func New(provider unit.DataProvider, writer output.Writer, optFns ...Option) (*Decaf, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if writer == nil {
		return nil, ErrNilWriter
	}

	opts := applyOptions(optFns)

	dctx := unit.NewContext(func(o *unit.ContextOptions) {
		o.Threads = opts.threads
		o.SkipExtraEntries = opts.skipExtraEntries
		o.SourceLineMapping = opts.sourceLineMapping
		o.Props = opts.props
		o.Logger = opts.logger.Logger
		o.Metadata = opts.metadataLoader
	})

	return &Decaf{
		dctx:     dctx,
		registry: unit.NewRegistry(dctx),
		saver:    unit.NewSaver(dctx, provider, writer),
		metrics:  opts.metricsCollector,
		logger:   opts.logger,
	}, nil
}

// FolderUnit returns the own folder unit for path, registering it when
// new.
func (d *Decaf) FolderUnit(path string) *unit.Unit {
	return d.registry.FolderUnit(path, true)
}

// ArchiveUnit returns the own archive unit for name below archivePath,
// registering it when new.
func (d *Decaf) ArchiveUnit(kind unit.Kind, archivePath, name string) *unit.Unit {
	return d.registry.ArchiveUnit(kind, archivePath, name, true)
}

// LibraryUnit returns the unit for a referenced library, registering it
// when new. Library units are tracked for lookups but skipped by SaveAll.
func (d *Decaf) LibraryUnit(kind unit.Kind, archivePath, name string) *unit.Unit {
	if kind == unit.Folder {
		return d.registry.FolderUnit(archivePath, false)
	}

	return d.registry.ArchiveUnit(kind, archivePath, name, false)
}

// Unit looks up a registered unit by output location.
func (d *Decaf) Unit(archivePath, name string) (*unit.Unit, bool) {
	return d.registry.Unit(archivePath, name)
}

// Units returns all registered units in registration order.
func (d *Decaf) Units() []*unit.Unit {
	return d.registry.Units()
}

// Context returns the decompilation context shared by all units of the
// run.
func (d *Decaf) Context() *unit.Context {
	return d.dctx
}

// Save writes one unit. The unit must be pending; saving it again returns
// ErrUnitNotPending.
func (d *Decaf) Save(ctx context.Context, u *unit.Unit) error {
	classes := ownClassCount(u)
	start := time.Now()

	err := d.saver.Save(ctx, u)

	d.metrics.RecordUnitSave(classes, time.Since(start), err)
	d.logger.LogUnitSave(ctx, u.Kind().String(), unitName(u), classes, err)

	return err
}

// SaveAll saves every own unit in registration order, stopping at the
// first failure and returning its error. Library units are skipped.
func (d *Decaf) SaveAll(ctx context.Context) error {
	start := time.Now()

	var (
		attempted int
		failed    int
		firstErr  error
	)

	for _, u := range d.registry.Units() {
		if !u.Own() {
			continue
		}

		attempted++

		if err := d.Save(ctx, u); err != nil {
			failed++
			firstErr = err

			break
		}
	}

	d.metrics.RecordSaveAll(attempted, failed, time.Since(start))
	d.logger.LogSaveAll(ctx, attempted, failed)

	return firstErr
}

func ownClassCount(u *unit.Unit) int {
	n := 0
	for _, cl := range u.Classes() {
		if cl.Own {
			n++
		}
	}

	return n
}

func unitName(u *unit.Unit) string {
	if u.Name() != "" {
		return u.Name()
	}

	return u.ArchivePath()
}
