package rowstore

import "time"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithQueryTimeout bounds how long one query may run.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxInFlight bounds how many queries run concurrently. Further
// requests wait for a slot or their context, whichever ends first.
func WithMaxInFlight(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}
