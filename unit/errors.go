package unit

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitNotPending is returned when a unit that was already saved, is
	// being saved or has failed is saved again.
	ErrUnitNotPending = errors.New("unit is not pending")

	// ErrUnknownKind is returned when a unit carries a kind the saver does
	// not recognize.
	ErrUnknownKind = errors.New("unknown unit kind")
)

// UnitError reports that saving a unit failed.
type UnitError struct {
	ArchivePath string
	Name        string
	Kind        Kind
	Err         error
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	return fmt.Sprintf("failed to save %s unit %s: %v", e.Kind, unitKey(e.ArchivePath, e.Name), e.Err)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// ClassError reports that writing one decompiled class failed.
type ClassError struct {
	QualifiedName string
	EntryName     string
	Err           error
}

// Error implements the error interface.
func (e *ClassError) Error() string {
	return fmt.Sprintf("failed to write class %s as %s: %v", e.QualifiedName, e.EntryName, e.Err)
}

// Unwrap returns the underlying error.
func (e *ClassError) Unwrap() error {
	return e.Err
}
