package decaf

import (
	"errors"

	"github.com/hupe1980/decaf/output"
	"github.com/hupe1980/decaf/unit"
)

var (
	// ErrNilProvider is returned when New is called without a data
	// provider.
	ErrNilProvider = errors.New("provider must not be nil")

	// ErrNilWriter is returned when New is called without an output
	// writer.
	ErrNilWriter = errors.New("writer must not be nil")

	// ErrUnitNotPending is returned when a unit that was already saved, is
	// being saved or has failed is saved again.
	ErrUnitNotPending = unit.ErrUnitNotPending

	// ErrUnknownKind is returned when a unit carries an unrecognized kind.
	ErrUnknownKind = unit.ErrUnknownKind

	// ErrArchiveNotOpen is returned when an archive entry is written
	// outside the CreateArchive/CloseArchive bracket.
	ErrArchiveNotOpen = output.ErrArchiveNotOpen

	// ErrBucketNotFound is returned by object storage sinks when the
	// target bucket does not exist.
	ErrBucketNotFound = output.ErrBucketNotFound
)
