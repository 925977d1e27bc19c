package cache

import "time"

// Option applies a configuration option to the TreapCache.
type Option func(*TreapCache)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(c *TreapCache) {
		if interval > 0 {
			c.metricsInterval = interval
		}
	}
}
