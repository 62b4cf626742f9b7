// Package profiling mounts runtime diagnostics on the compile service.
// The endpoints expose goroutine stacks and heap contents; mount them
// behind auth.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wpkernel/wpkgen/internal/web/response"
)

// Prefix is where the pprof handlers are mounted
const Prefix = "/debug/pprof"

var started = time.Now()

// Register mounts pprof under Prefix and runtime statistics at /debug/stats
func Register(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
	r.Get("/debug/stats", StatsHandler)
}

// Stats is a snapshot of the process runtime
type Stats struct {
	Goroutines int         `json:"goroutines"`
	Uptime     string      `json:"uptime"`
	GoVersion  string      `json:"go_version"`
	Memory     MemoryStats `json:"memory"`
	CPU        CPUStats    `json:"cpu"`
}

// MemoryStats are the heap figures of runtime.MemStats
type MemoryStats struct {
	Alloc       uint64 `json:"alloc"`
	TotalAlloc  uint64 `json:"total_alloc"`
	Sys         uint64 `json:"sys"`
	HeapObjects uint64 `json:"heap_objects"`
	NumGC       uint32 `json:"num_gc"`
}

// CPUStats describes the schedulable CPUs
type CPUStats struct {
	NumCPU     int   `json:"num_cpu"`
	GOMAXPROCS int   `json:"gomaxprocs"`
	NumCgoCall int64 `json:"num_cgo_call"`
}

// ReadStats collects a Stats snapshot. It stops the world briefly.
func ReadStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(started).Round(time.Second).String(),
		GoVersion:  runtime.Version(),
		Memory: MemoryStats{
			Alloc:       m.Alloc,
			TotalAlloc:  m.TotalAlloc,
			Sys:         m.Sys,
			HeapObjects: m.HeapObjects,
			NumGC:       m.NumGC,
		},
		CPU: CPUStats{
			NumCPU:     runtime.NumCPU(),
			GOMAXPROCS: runtime.GOMAXPROCS(0),
			NumCgoCall: runtime.NumCgoCall(),
		},
	}
}

// StatsHandler serves ReadStats as JSON
func StatsHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, ReadStats())
}
