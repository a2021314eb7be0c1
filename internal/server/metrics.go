package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mindnoscape/editor/internal/generate"
)

// Metrics collects editor and generator counters on a private registry.
// It implements editor.Recorder.
type Metrics struct {
	registry  *prometheus.Registry
	actions   *prometheus.CounterVec
	unchanged *prometheus.CounterVec
	generate  *prometheus.CounterVec
}

// NewMetrics registers the editor and generator counters and the Go runtime
// collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindnoscape_actions_total",
			Help: "Editor actions that changed a document, by action.",
		}, []string{"action"}),
		unchanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindnoscape_actions_unchanged_total",
			Help: "Editor actions that left the document as it was, by action.",
		}, []string{"action"}),
		generate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindnoscape_generate_requests_total",
			Help: "Node generation requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	m.registry.MustRegister(
		m.actions,
		m.unchanged,
		m.generate,
		collectors.NewGoCollector(),
	)
	return m
}

// ActionApplied implements editor.Recorder.
func (m *Metrics) ActionApplied(action string, changed bool) {
	if changed {
		m.actions.WithLabelValues(action).Inc()
		return
	}
	m.unchanged.WithLabelValues(action).Inc()
}

// GenerateRequest counts one generation attempt.
func (m *Metrics) GenerateRequest(provider, outcome string) {
	m.generate.WithLabelValues(provider, outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument counts every call made through g.
func (m *Metrics) Instrument(g generate.Generator) generate.Generator {
	return &instrumented{next: g, metrics: m}
}

type instrumented struct {
	next    generate.Generator
	metrics *Metrics
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Generate(ctx context.Context, req generate.Request) ([]generate.Suggestion, error) {
	out, err := i.next.Generate(ctx, req)
	outcome := "ok"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = "canceled"
	default:
		outcome = "error"
	}
	i.metrics.GenerateRequest(i.next.Name(), outcome)
	return out, err
}
