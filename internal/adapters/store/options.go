package store

import "time"

// Option applies a configuration option to the PostgresStore.
type Option func(*PostgresStore)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxIdleTime sets how long a connection may sit idle.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.connMaxIdleTime = d
		}
	}
}

// WithoutMigrations skips running the embedded migrations at startup.
func WithoutMigrations() Option {
	return func(s *PostgresStore) {
		s.skipMigrations = true
	}
}
