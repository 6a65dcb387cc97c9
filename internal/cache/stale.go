package cache

import (
	"fmt"
	"os"

	"github.com/hdtquery/hdt/internal/format"
)

// Stale reports whether the sidecar at cachePath is missing, malformed,
// older than the HDT file at hdtPath, or layout-version-mismatched (spec
// §4.8: "a sidecar older than the HDT file or version-mismatched is
// regenerated"). A missing sidecar is reported stale, not an error.
func Stale(hdtPath, cachePath string) (bool, error) {
	hdtInfo, err := os.Stat(hdtPath)
	if err != nil {
		return false, fmt.Errorf("%w: statting %s: %v", format.ErrIO, hdtPath, err)
	}

	cacheInfo, err := os.Stat(cachePath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: statting %s: %v", format.ErrIO, cachePath, err)
	}

	if cacheInfo.ModTime().Before(hdtInfo.ModTime()) {
		return true, nil
	}

	f, err := os.Open(cachePath)
	if err != nil {
		return true, nil
	}
	defer f.Close()
	ci, err := format.ReadControlInfo(f)
	if err != nil {
		// A malformed sidecar is a warning-and-regenerate case, not fatal
		// (spec §7 "a malformed sidecar is reported as a warning and
		// regenerated").
		return true, nil
	}
	fv, _ := ci.Get(format.PropFormat)
	if fv != format.CacheFormatVersion {
		return true, nil
	}
	return false, nil
}
