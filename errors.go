package fts

import "errors"

// Error kinds returned by engine-level operations. Filesystem and parse
// failures are propagated as-is (wrapped with %w for context) rather than
// mapped onto a sentinel, since the underlying *os.PathError or parser
// error already carries the detail a caller needs.
var (
	ErrNotFound      = errors.New("fts: not found")
	ErrAlreadyExists = errors.New("fts: already exists")
	ErrCorruptData   = errors.New("fts: corrupt data")
	ErrCancelled     = errors.New("fts: search cancelled")
)
