package ratelimit

import "testing"

func TestLimiterAllowsBurstThenThrottles(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global:  LimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
		Tools: []ToolLimit{
			{Name: "recall", RequestsPerSecond: 1, BurstSize: 2},
		},
	}
	l := NewLimiter(cfg)

	if r := l.Allow("recall"); !r.Allowed {
		t.Fatalf("expected first recall call to be allowed")
	}
	if r := l.Allow("recall"); !r.Allowed {
		t.Fatalf("expected second recall call (within burst) to be allowed")
	}
	if r := l.Allow("recall"); r.Allowed {
		t.Fatalf("expected third recall call to be throttled")
	}
}

func TestLimiterDisabledAllowsEverything(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	for i := 0; i < 100; i++ {
		if r := l.Allow("remember"); !r.Allowed {
			t.Fatalf("expected disabled limiter to allow all calls, rejected at iteration %d", i)
		}
	}
}

func TestLimiterUnconfiguredToolFallsBackToGlobal(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global:  LimitConfig{RequestsPerSecond: 1, BurstSize: 1},
	}
	l := NewLimiter(cfg)

	if r := l.Allow("anything"); !r.Allowed || r.LimitType != "global" {
		t.Fatalf("expected global bucket to gate unconfigured tool, got %+v", r)
	}
	if r := l.Allow("anything"); r.Allowed {
		t.Fatalf("expected global bucket exhaustion to throttle second call")
	}
}
