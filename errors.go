package hdt

import (
	"strconv"

	"github.com/hdtquery/hdt/internal/format"
)

// Sentinel error kinds (spec §7), re-exported so callers never need to
// import internal/format to use errors.Is against them.
var (
	ErrFormat      = format.ErrFormat
	ErrChecksum    = format.ErrChecksum
	ErrIO          = format.ErrIO
	ErrOutOfRange  = format.ErrOutOfRange
	ErrInvalidUTF8 = format.ErrInvalidUTF8
	ErrCacheStale  = format.ErrCacheStale
)

// LoadError wraps one of the sentinel error kinds with the offending
// file, section name, and byte offset, for forensic load failures (spec
// §7). Mirrors the teacher's mix of bare sentinels for common outcomes
// (ErrNotFound, ErrDBFull in db.go) and richer messages for invariant
// violations it cannot recover from.
type LoadError struct {
	Path    string
	Section string
	Offset  int64
	Err     error
}

func (e *LoadError) Error() string {
	if e.Offset != 0 {
		return e.Section + " in " + e.Path + " at offset " + strconv.FormatInt(e.Offset, 10) + ": " + e.Err.Error()
	}
	return e.Section + " in " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }
