/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Seednode/gamechain/game"
	"github.com/Seednode/gamechain/gemini"
)

type Metrics struct {
	registry *prometheus.Registry

	aiRequests  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	sessions    prometheus.Gauge
	clients     prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamechain",
			Name:      "ai_requests_total",
			Help:      "AI requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamechain",
			Name:      "phase_transitions_total",
			Help:      "Phases entered across all sessions.",
		}, []string{"phase"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamechain",
			Name:      "commands_rejected_total",
			Help:      "Client commands refused by the game, by command type.",
		}, []string{"command"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamechain",
			Name:      "sessions",
			Help:      "Game sessions currently held in memory.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamechain",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
	}

	m.registry.MustRegister(
		m.aiRequests,
		m.transitions,
		m.rejections,
		m.sessions,
		m.clients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) observeAI(op gemini.Operation, outcome gemini.Outcome) {
	m.aiRequests.WithLabelValues(string(op), string(outcome)).Inc()
}

func (m *Metrics) observePhase(p game.Phase) {
	m.transitions.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) observeRejection(command string) {
	m.rejections.WithLabelValues(command).Inc()
}

func registerMetricsHandler(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
