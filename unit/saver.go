package unit

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/decaf/manifest"
	"github.com/hupe1980/decaf/output"
)

// Saver writes units to an output sink. Folder units are written
// sequentially on the calling goroutine. Archive units resolve entry names
// up front, then decompile classes on a worker group bounded by the
// context's Threads setting; every started class finishes before the save
// returns, and the first failure decides the result.
//
// A Saver may be reused across units but not across concurrent Save calls
// for the same unit; the unit state machine rejects those.
type Saver struct {
	dctx     *Context
	provider DataProvider
	writer   output.Writer

	clones sync.Pool
}

// NewSaver creates a saver that reads decompiled output from provider and
// writes it through writer.
func NewSaver(dctx *Context, provider DataProvider, writer output.Writer) *Saver {
	s := &Saver{
		dctx:     dctx,
		provider: provider,
		writer:   writer,
	}
	s.clones.New = func() any {
		return dctx.Clone()
	}

	return s
}

// Save writes one unit. The unit must be pending; a second save returns
// ErrUnitNotPending. Failures move the unit to StateFailed and are wrapped
// in a UnitError.
func (s *Saver) Save(ctx context.Context, u *Unit) error {
	if err := u.beginSave(); err != nil {
		return err
	}

	var err error
	switch u.kind {
	case Folder:
		err = s.saveFolder(ctx, u)
	case Jar, Zip:
		err = s.saveArchive(ctx, u)
	default:
		err = ErrUnknownKind
	}

	if err != nil {
		u.finishSave(StateFailed)
		return &UnitError{ArchivePath: u.archivePath, Name: u.name, Kind: u.kind, Err: err}
	}
	u.finishSave(StateClosed)

	return nil
}

// saveFolder writes a folder unit: the directory, the passthrough files
// and then every own class, all sequentially.
func (s *Saver) saveFolder(ctx context.Context, u *Unit) error {
	if err := s.writer.SaveFolder(ctx, u.archivePath); err != nil {
		return err
	}

	for _, entry := range u.otherEntries {
		if err := s.writer.CopyFile(ctx, entry.source, u.archivePath, entry.name); err != nil {
			s.dctx.Logger.Warn("cannot copy file",
				slog.String("source", entry.source),
				slog.String("entry", entry.name),
				slog.Any("error", err),
			)
		}
	}

	for _, cl := range u.classes {
		if !cl.Own {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		entryName, ok := s.provider.ClassEntryName(s.dctx, cl, cl.EntryName)
		if !ok {
			continue
		}

		s.dctx.Mapper.Reset()

		content, err := s.provider.ClassContent(s.dctx, cl)
		if err != nil {
			// no file is written for this class, unlike archive saves
			s.dctx.Logger.Error("cannot decompile class",
				slog.String("class", cl.QualifiedName),
				slog.Any("error", err),
			)

			continue
		}

		var mapping []int
		if s.dctx.SourceLineMapping {
			mapping = s.dctx.Mapper.Mapping()
		}

		if err := s.writer.SaveClassFile(ctx, u.archivePath, cl.QualifiedName, entryName, content, mapping); err != nil {
			return &ClassError{QualifiedName: cl.QualifiedName, EntryName: entryName, Err: err}
		}
	}

	return nil
}

// saveArchive writes an archive unit: the archive with its manifest, the
// directory entries, the passthrough entries and then every own class on
// the worker group. The archive is only closed when all classes succeed.
func (s *Saver) saveArchive(ctx context.Context, u *Unit) error {
	if err := s.writer.SaveFolder(ctx, u.archivePath); err != nil {
		return err
	}
	if err := s.writer.CreateArchive(ctx, u.archivePath, u.name, u.manifest); err != nil {
		return err
	}

	for _, dir := range u.dirEntries {
		if err := s.writer.SaveDirEntry(ctx, u.archivePath, u.name, dir); err != nil {
			return err
		}
	}

	for _, entry := range u.otherEntries {
		// the manifest of a jar is owned by CreateArchive, never copied
		if u.kind == Jar && strings.EqualFold(entry.name, manifest.EntryName) {
			continue
		}
		if err := s.writer.CopyEntry(ctx, entry.source, u.archivePath, u.name, entry.name); err != nil {
			s.dctx.Logger.Warn("cannot copy entry",
				slog.String("source", entry.source),
				slog.String("entry", entry.name),
				slog.Any("error", err),
			)
		}
	}

	// entry names are resolved here on the calling goroutine; only content
	// production runs on workers
	type task struct {
		cl        Class
		entryName string
	}

	tasks := make([]task, 0, len(u.classes))
	for _, cl := range u.classes {
		if !cl.Own {
			continue
		}
		entryName, ok := s.provider.ClassEntryName(s.dctx, cl, cl.EntryName)
		if !ok {
			continue
		}
		tasks = append(tasks, task{cl: cl, entryName: entryName})
	}

	limit := s.dctx.Threads
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for _, tk := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			wctx := s.leaseContext()
			defer s.releaseContext(wctx)

			content, err := s.provider.ClassContent(wctx, tk.cl)
			if err != nil {
				// the entry is still created, empty, so the archive
				// keeps a stable member list
				wctx.Logger.Error("cannot decompile class",
					slog.String("class", tk.cl.QualifiedName),
					slog.Any("error", err),
				)
				content = ""
			}

			var mapping []int
			if wctx.SourceLineMapping {
				mapping = wctx.Mapper.Mapping()
			}

			if err := s.writer.SaveClassEntry(ctx, u.archivePath, u.name, tk.cl.QualifiedName, tk.entryName, content, mapping); err != nil {
				return &ClassError{QualifiedName: tk.cl.QualifiedName, EntryName: tk.entryName, Err: err}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return s.writer.CloseArchive(ctx, u.archivePath, u.name)
}

// leaseContext hands out a worker context. Clones are pooled, so a worker
// may see property mutations from earlier classes of the same run.
func (s *Saver) leaseContext() *Context {
	return s.clones.Get().(*Context)
}

func (s *Saver) releaseContext(c *Context) {
	c.Mapper.Reset()
	s.clones.Put(c)
}
