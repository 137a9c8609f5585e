package queue

import "time"

// Config bounds how a Queue talks to a flaky upstream.
type Config struct {
	MaxConcurrent           int           `mapstructure:"max_concurrent"`
	MinInterval             time.Duration `mapstructure:"min_interval"`
	MaxRetries              int           `mapstructure:"max_retries"`
	RetryDelayBase          time.Duration `mapstructure:"retry_delay_base"`
	RetryDelayMax           time.Duration `mapstructure:"retry_delay_max"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerResetTime time.Duration `mapstructure:"circuit_breaker_reset_time"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           2,
		MinInterval:             100 * time.Millisecond,
		MaxRetries:              3,
		RetryDelayBase:          500 * time.Millisecond,
		RetryDelayMax:           10 * time.Second,
		Timeout:                 30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerResetTime: 30 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (1-based):
// base * 2^(attempt-1), capped at RetryDelayMax.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 1 || c.RetryDelayBase <= 0 {
		return 0
	}
	d := c.RetryDelayBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.RetryDelayMax > 0 && d >= c.RetryDelayMax {
			return c.RetryDelayMax
		}
	}
	if c.RetryDelayMax > 0 && d > c.RetryDelayMax {
		return c.RetryDelayMax
	}
	return d
}
