package resilience

import "time"

// RetryPolicy bounds how many times a failed call is reattempted and how
// long the executor waits between attempts. Backoff grows by Multiplier per
// attempt and never exceeds MaxBackoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// BreakerPolicy configures the per-operation circuit breaker. The breaker
// trips once at least MinRequests calls were observed and the failure ratio
// reaches FailureRatio.
type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

type Config struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     400 * time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	}
}

// ProviderConfig derives a policy from a configured attempt budget while
// keeping the default breaker thresholds.
func ProviderConfig(maxAttempts int) Config {
	cfg := DefaultConfig()
	if maxAttempts > 0 {
		cfg.Retry.MaxAttempts = maxAttempts
	}
	return cfg
}

func (c Config) normalize() Config {
	c.Retry = c.Retry.normalize()
	c.Breaker = c.Breaker.normalize()
	return c
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultConfig().Retry
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

func (b BreakerPolicy) normalize() BreakerPolicy {
	def := DefaultConfig().Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.OpenTimeout
	}
	if b.HalfOpenMaxCalls == 0 {
		b.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return b
}
