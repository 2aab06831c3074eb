// Package decaf provides the analytical core of a Java bytecode
// decompiler for Go.
//
// Decaf organizes a decompilation run into compilation units (folders,
// jars and zips), decompiles the classes of archive units on a bounded
// worker pool and writes the results through pluggable output sinks. It
// also ships a compact sparse bit set family used by dataflow analyses.
//
// # Quick Start
//
// Local output:
//
//	ctx := context.Background()
//	writer := output.NewLocal("./out")
//	d, _ := decaf.New(provider, writer, decaf.WithThreads(8))
//
//	u := d.ArchiveUnit(unit.Jar, "libs", "app.jar")
//	u.SetManifest(mf)
//	u.AddClass(unit.Class{QualifiedName: "com/example/Foo", EntryName: "com/example/Foo.class", Own: true})
//
//	err := d.SaveAll(ctx)
//
// Cloud output:
//
//	store, _ := s3.NewDefaultStore(ctx, "my-bucket", func(o *s3.StoreOptions) {
//	    o.Prefix = "decompiled/"
//	})
//	d, _ := decaf.New(provider, store)
//
// # Units
//
// A unit is the saveable half of one input: a folder of class files or an
// archive. Units are registered up front, populated with classes,
// directory entries and passthrough files, and saved exactly once. Units
// registered for referenced libraries are tracked but never written.
//
// # Sparse Sets
//
// The sparse package implements the bit set family used by dataflow
// analyses: sets over a shared, append-only universe with constant-time
// membership and allocation-free algebra on word-aligned blocks.
//
//	factory := sparse.NewFactory[string]()
//	live := factory.EmptySet()
//	live.Add("x")
//
// # Key Features
//
//   - Parallel class decompilation per archive unit (bounded worker pool)
//   - Pluggable sinks: local filesystem, in-memory, S3, MinIO
//   - Jar manifests with spec-conform 72-byte line wrapping
//   - Abstract parameter metadata sidecar handling
//   - Structured logging (slog) and pluggable metrics
package decaf
