package hdt

// config collects the functional options Open accepts, in the same
// small-and-explicit spirit as the teacher's Open(path, base string) —
// no config file or env var layer (spec: a library's Open call carries no
// configuration framework).
type config struct {
	hybrid          bool
	strictChecksums bool
	cachePath       string
}

// OpenOption configures Open.
type OpenOption func(*config)

// WithHybrid opens the dataset in hybrid mode: B_Y, B_Z and the Z
// sequence are bound to the file directly (internal/diskio) instead of
// being read fully into RAM, and the derived wavelet matrix/op-index are
// loaded from (or written to) a cache sidecar instead of being rebuilt on
// every open (spec §4.8).
func WithHybrid(hybrid bool) OpenOption {
	return func(c *config) { c.hybrid = hybrid }
}

// WithStrictChecksums records whether a checksum mismatch is to be
// treated as fatal (strict by default). The readers do not consult this
// setting: a checksum mismatch fails Open whatever its value.
func WithStrictChecksums(strict bool) OpenOption {
	return func(c *config) { c.strictChecksums = strict }
}

// WithCachePath overrides the sidecar path (default: cache.Path(hdtPath),
// spec §6 "<hdt-path>.index.v<version>-cache").
func WithCachePath(path string) OpenOption {
	return func(c *config) { c.cachePath = path }
}

func newConfig(opts []OpenOption) *config {
	c := &config{strictChecksums: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
