package config

import "time"

// RateLimitConfig configures the Redis token bucket applied to the public
// registration and proof-upload endpoints and, separately, to gate scans.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "pass:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// GateRateLimit derives the gate-scan limiter from the public one.  Gate
// staff scan quickly, so the bucket is keyed per user and refills every
// 100ms.
func (c RateLimitConfig) GateRateLimit() RateLimitConfig {
	g := c
	g.Capacity = envInt("GATE_RATE_LIMIT_CAPACITY", 120)
	g.RefillInterval = envDur("GATE_RATE_LIMIT_REFILL_INTERVAL", 100*time.Millisecond)
	g.KeyStrategy = "user_route"
	if g.TTL < 5*g.RefillInterval {
		g.TTL = 5 * g.RefillInterval
	}
	return g
}
