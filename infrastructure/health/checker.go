// Package health reports whether the scanner's dependencies are usable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	infracontext "github.com/jonesrussell/competitive-scan/infrastructure/context"
)

// Status is the overall result of a health check run.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	critical bool
}

// Report is the JSON body served by Handler.
type Report struct {
	Status    Status            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// Checker runs named checks. A failing critical check makes the service
// unhealthy; a failing non-critical check only degrades it.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]check
	now    func() time.Time
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]check), now: time.Now}
}

// Register adds a critical check, replacing any check of the same name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.add(name, check{fn: fn, critical: true})
}

// RegisterDegraded adds a check whose failure degrades but does not fail the service.
func (c *Checker) RegisterDegraded(name string, fn CheckFunc) {
	c.add(name, check{fn: fn})
}

func (c *Checker) add(name string, chk check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = chk
}

// Run executes every check in name order.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make(map[string]check, len(c.checks))
	for name, chk := range c.checks {
		names = append(names, name)
		checks[name] = chk
	}
	c.mu.RUnlock()
	sort.Strings(names)

	report := Report{Status: StatusHealthy, Checks: make(map[string]string, len(names)), Timestamp: c.now().UTC()}
	for _, name := range names {
		chk := checks[name]
		if err := chk.fn(ctx); err != nil {
			report.Checks[name] = "error: " + err.Error()
			if chk.critical {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
			continue
		}
		report.Checks[name] = "ok"
	}

	return report
}

// Handler serves the check report. Unhealthy answers 503; degraded still answers 200.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := infracontext.WithPingTimeout(r.Context())
		defer cancel()

		report := c.Run(ctx)

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

// LivenessHandler always answers alive.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
