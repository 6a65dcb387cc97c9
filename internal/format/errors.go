package format

import "errors"

// Sentinel error kinds shared by every section reader/writer in the format.
// The root hdt package re-exports these under hdt.Err* so callers never
// need to import internal/format to use errors.Is against them.
var (
	ErrFormat      = errors.New("hdt: format error")
	ErrChecksum    = errors.New("hdt: checksum error")
	ErrIO          = errors.New("hdt: io error")
	ErrOutOfRange  = errors.New("hdt: out of range")
	ErrInvalidUTF8 = errors.New("hdt: invalid utf-8")
	ErrCacheStale  = errors.New("hdt: cache stale")
)
