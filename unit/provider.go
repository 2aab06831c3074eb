package unit

// MetadataEntryName is the reserved file name carrying recorded abstract
// parameter names. Entries with this name are consumed by the context's
// MetadataLoader instead of being copied into the output.
const MetadataEntryName = "decaf_abstract_parameter_names.txt"

// DataProvider supplies decompiled output for the classes of a unit.
//
// Both methods receive the context of the goroutine they run on: the root
// context while entry names are resolved, a worker clone while content is
// produced for an archive unit. Implementations must not retain the
// context beyond the call.
type DataProvider interface {
	// ClassEntryName maps a class to its output entry name, such as
	// "com/example/Foo.java". Returning false skips the class entirely.
	ClassEntryName(dctx *Context, cl Class, entryName string) (string, bool)

	// ClassContent returns the decompiled source of a class. Errors are
	// per-class, never fatal: the pipeline logs the failure, folder saves
	// skip the class file and archive saves keep an empty entry in its
	// place.
	ClassContent(dctx *Context, cl Class) (string, error)
}

// MetadataLoader consumes sidecar metadata discovered while registering
// unit entries.
type MetadataLoader interface {
	// LoadAbstractMetadata parses the text of an abstract parameter names
	// file.
	LoadAbstractMetadata(dctx *Context, text string) error
}
