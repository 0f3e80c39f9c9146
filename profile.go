/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// registerDebugHandlers exposes pprof and prometheus endpoints, each behind
// its own flag.
func registerDebugHandlers(cfg *Config, mux *httprouter.Router, metrics *Metrics) {
	if cfg.metrics {
		registerMetricsHandler(cfg, metrics, mux)
		logf(cfg, "START: Metrics enabled at %s/metrics", cfg.prefix)
	}

	if !cfg.profile {
		return
	}

	for _, name := range profiles {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)

	logf(cfg, "START: Profiling enabled at %s/pprof/", cfg.prefix)
}
