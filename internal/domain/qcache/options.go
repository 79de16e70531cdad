package qcache

// Option applies a configuration option to the cache.
type Option func(*inMemoryCache)

// WithMaxSize sets how many answers to keep.
// If maxSize > 0: bounded mode, the oldest entry is evicted when full.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(c *inMemoryCache) {
		c.maxSize = maxSize
	}
}
