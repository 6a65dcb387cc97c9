// Package diskio provides the shared, reference-counted file handle that
// every file-streamed sequence/bitmap in hybrid mode binds to: spec §9
// calls for "one file, many concurrent random reads", naturally expressed
// either as a memory-mapped region or a mutex-guarded handle. Handle tries
// mmap first (github.com/edsrzf/mmap-go, as used for the same purpose in
// dolthub-dolt's noms chunk store and sourcegraph-zoekt's shard reader) and
// falls back to a mutex-guarded ReadAt loop when mapping the file fails
// (e.g. a zero-length file, or a platform where mmap is unavailable).
package diskio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/hdtquery/hdt/internal/format"
)

// Handle is a reference-counted, concurrency-safe read-only view of a
// file's bytes. Multiple Sequence/Bitmap objects Retain() the same Handle
// and Release() it when closed; the underlying file is only unmapped and
// closed once the last reference is released.
type Handle struct {
	mu   sync.Mutex
	file *os.File
	mm   mmap.MMap // nil if mmap failed; falls back to ReadAt
	refs int32
	size int64
}

// Open opens path read-only and maps it into memory if possible.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", format.ErrIO, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: statting %s: %v", format.ErrIO, path, err)
	}

	h := &Handle{file: f, refs: 1, size: fi.Size()}
	if fi.Size() > 0 {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err == nil {
			h.mm = m
		}
		// if mmap fails, h.mm stays nil and ReadAt falls back to the file.
	}
	return h, nil
}

// Retain increments the reference count and returns h, so callers can
// write `seq.handle = handle.Retain()`.
func (h *Handle) Retain() *Handle {
	atomic.AddInt32(&h.refs, 1)
	return h
}

// Release decrements the reference count, closing the underlying file and
// unmapping it once the count reaches zero.
func (h *Handle) Release() error {
	if atomic.AddInt32(&h.refs, -1) > 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	if h.mm != nil {
		err = h.mm.Unmap()
	}
	if cerr := h.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Size returns the total byte size of the underlying file.
func (h *Handle) Size() int64 { return h.size }

// ReadAt reads len(buf) bytes starting at byte offset off.
func (h *Handle) ReadAt(buf []byte, off int64) error {
	if off < 0 || off+int64(len(buf)) > h.size {
		return fmt.Errorf("%w: read [%d,%d) beyond file size %d", format.ErrIO, off, off+int64(len(buf)), h.size)
	}
	if h.mm != nil {
		copy(buf, h.mm[off:off+int64(len(buf))])
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.file.ReadAt(buf, off)
	if err != nil {
		return fmt.Errorf("%w: ReadAt(off=%d,len=%d): %v", format.ErrIO, off, len(buf), err)
	}
	return nil
}
