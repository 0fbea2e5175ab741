package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonesrussell/competitive-scan/infrastructure/health"
)

// BreakerReporter lists providers whose circuit breaker is not closed.
type BreakerReporter interface {
	OpenBreakers() []string
}

// Health builds the readiness checker for the scanner: the database is
// critical, an open provider breaker only degrades the service.
func (s *Scanner) Health() *health.Checker {
	checker := health.NewChecker()
	checker.Register("postgres", s.DB.PingContext)
	checker.RegisterDegraded("providers", BreakerCheck(s.Fetcher))
	return checker
}

// BreakerCheck fails while any provider breaker is open or half-open.
func BreakerCheck(r BreakerReporter) health.CheckFunc {
	return func(context.Context) error {
		if open := r.OpenBreakers(); len(open) > 0 {
			return fmt.Errorf("circuit open: %s", strings.Join(open, ", "))
		}
		return nil
	}
}
