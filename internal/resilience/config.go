package resilience

import (
	"time"

	"github.com/sells-group/urban-performance/internal/config"
)

// FromPersistConfig derives the retry policy and breaker settings used for
// result writes. Zero values fall back to defaults.
func FromPersistConfig(pc config.PersistConfig) (RetryConfig, CircuitBreakerConfig) {
	rc := DefaultRetryConfig()
	if pc.MaxAttempts > 0 {
		rc.MaxAttempts = pc.MaxAttempts
	}
	if pc.InitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(pc.InitialBackoffMs) * time.Millisecond
	}
	if pc.MaxBackoffMs > 0 {
		rc.MaxBackoff = time.Duration(pc.MaxBackoffMs) * time.Millisecond
	}
	if pc.Multiplier > 0 {
		rc.Multiplier = pc.Multiplier
	}
	if pc.Jitter >= 0 {
		rc.JitterFraction = pc.Jitter
	}

	cc := DefaultCircuitBreakerConfig()
	if pc.BreakerThreshold > 0 {
		cc.FailureThreshold = pc.BreakerThreshold
	}
	if pc.BreakerResetSecs > 0 {
		cc.ResetTimeout = time.Duration(pc.BreakerResetSecs) * time.Second
	}
	return rc, cc
}
