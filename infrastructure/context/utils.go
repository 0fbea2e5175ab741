// Package context holds the timeout conventions shared by commands and storage setup.
package context

import (
	"context"
	"time"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown of long-running commands.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultPingTimeout bounds connectivity checks at startup.
	DefaultPingTimeout = 5 * time.Second
)

// WithShutdownTimeout derives a shutdown context that survives parent cancellation.
func WithShutdownTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), DefaultShutdownTimeout)
}

// WithPingTimeout derives a context for a startup health check.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}

// Detached derives a context that ignores parent cancellation but is bounded by d.
// Used for best-effort writes that must not be lost when a scan is cancelled.
func Detached(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), d)
}
