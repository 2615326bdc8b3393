package statement

import "errors"

var (
	// ErrInvalidFilter indicates a filter outside all/unpaid/paid.
	ErrInvalidFilter = errors.New("statement: invalid filter")
	// ErrInvalidFormat indicates an unsupported export format.
	ErrInvalidFormat = errors.New("statement: invalid export format")
	// ErrExportFailed wraps any renderer failure.
	ErrExportFailed = errors.New("statement: export failed")
	// ErrUnknownConflict indicates a 409 payload with an unrecognised conflict_type.
	ErrUnknownConflict = errors.New("statement: unknown conflict type")
	// ErrInvalidResolution indicates resolutions that do not answer a conflict.
	ErrInvalidResolution = errors.New("statement: invalid conflict resolution")
)
