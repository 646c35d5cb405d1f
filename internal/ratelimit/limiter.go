package ratelimit

import "time"

// LimitResult contains the result of a rate limit check
type LimitResult struct {
	Allowed    bool          // Whether the request is allowed
	RetryAfter time.Duration // Suggested wait time if not allowed
	LimitType  string        // "global", tool name, or "disabled"
	Remaining  float64       // Remaining tokens in the relevant bucket
}

// Limiter gates MCP tool calls with one global token bucket plus one
// bucket per tool name. Its configuration is fixed at construction; the
// buckets handle their own locking.
type Limiter struct {
	enabled      bool
	globalBucket *Bucket
	toolBuckets  map[string]*Bucket
}

// NewLimiter creates a new rate limiter from configuration
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Limiter{
		enabled:     cfg.Enabled,
		toolBuckets: make(map[string]*Bucket),
	}

	l.globalBucket = NewBucket(
		float64(cfg.Global.BurstSize),
		cfg.Global.RequestsPerSecond,
	)

	for _, toolLimit := range cfg.Tools {
		l.toolBuckets[toolLimit.Name] = NewBucket(
			float64(toolLimit.BurstSize),
			toolLimit.RequestsPerSecond,
		)
	}

	return l
}

// Allow checks if a request for the given tool is allowed. The global
// bucket is consulted first; a tool with no dedicated bucket is gated by
// the global bucket alone.
func (l *Limiter) Allow(toolName string) *LimitResult {
	if !l.enabled {
		return &LimitResult{
			Allowed:   true,
			LimitType: "disabled",
			Remaining: -1,
		}
	}

	if !l.globalBucket.TryConsume(1) {
		return &LimitResult{
			Allowed:    false,
			RetryAfter: l.globalBucket.TimeToWait(1),
			LimitType:  "global",
			Remaining:  l.globalBucket.Tokens(),
		}
	}

	if toolBucket, exists := l.toolBuckets[toolName]; exists {
		if !toolBucket.TryConsume(1) {
			return &LimitResult{
				Allowed:    false,
				RetryAfter: toolBucket.TimeToWait(1),
				LimitType:  toolName,
				Remaining:  toolBucket.Tokens(),
			}
		}
		return &LimitResult{
			Allowed:   true,
			LimitType: toolName,
			Remaining: toolBucket.Tokens(),
		}
	}

	return &LimitResult{
		Allowed:   true,
		LimitType: "global",
		Remaining: l.globalBucket.Tokens(),
	}
}
