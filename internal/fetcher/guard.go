package fetcher

import (
	"context"
	"errors"
	"net"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/competitive-scan/infrastructure/circuitbreaker"
	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

// guard holds the per-provider call protections.
type guard struct {
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
}

func newGuard(name string, cfg Config, onStateChange func(name string, from, to circuitbreaker.State)) *guard {
	limit := rate.Inf
	burst := 1
	if l, ok := cfg.Limits[name]; ok && l.RPS > 0 {
		limit = rate.Limit(l.RPS)
		burst = max(l.Burst, 1)
	}

	breakerCfg := circuitbreaker.DefaultConfig(name)
	if cfg.BreakerThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.BreakerThreshold
	}
	if cfg.BreakerCooldown > 0 {
		breakerCfg.Timeout = cfg.BreakerCooldown
	}
	breakerCfg.IsFailure = isProviderFault
	breakerCfg.OnStateChange = onStateChange

	return &guard{
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.New(breakerCfg),
	}
}

// isProviderFault reports whether err says the provider itself is unhealthy.
// The breaker is shared by every target of every client, so answers about
// one target (a 400, an unknown domain, a payload that does not decode) must
// not count against it.
func isProviderFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, provider.ErrUnauthorized) {
		return true
	}

	var transient *retry.TransientError
	if errors.As(err, &transient) {
		return true
	}

	// Transport failures (refused connections, DNS, TLS) surface as *url.Error,
	// which is a net.Error.
	var netErr net.Error
	return errors.As(err, &netErr)
}
