// Package profiling exposes the runtime pprof endpoints on an existing mux.
package profiling

import (
	"net/http"
	"net/http/pprof"
)

// PathPrefix is where the pprof index is mounted.
const PathPrefix = "/debug/pprof/"

// Register mounts the standard pprof handlers on mux:
//   - /debug/pprof/ index, including heap, goroutine, allocs, block and mutex
//   - /debug/pprof/profile CPU profile (30s default)
//   - /debug/pprof/trace execution trace
//
// Nothing is mounted on http.DefaultServeMux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc(PathPrefix, pprof.Index)
	mux.HandleFunc(PathPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc(PathPrefix+"profile", pprof.Profile)
	mux.HandleFunc(PathPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc(PathPrefix+"trace", pprof.Trace)
}
