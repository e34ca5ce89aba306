// Package metrics publishes housebot operational metrics through Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "housebot"

// Recorder aggregates operation timings and bot state gauges on a dedicated registry.
type Recorder struct {
	registry  *prometheus.Registry
	results   *prometheus.CounterVec
	durations *prometheus.HistogramVec
	pending   prometheus.Gauge
	dialogs   *prometheus.CounterVec
	version   prometheus.Gauge
	backups   *prometheus.CounterVec
}

// New constructs a recorder and registers its collectors plus the Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Handled operations by name and status.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dialogs_pending",
			Help:      "Dialog steps awaiting user input.",
		}),
		dialogs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_outcomes_total",
			Help:      "Dialog step outcomes.",
		}, []string{"outcome"}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "building_version",
			Help:      "Version of the last saved building document.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_uploads_total",
			Help:      "Remote backup uploads by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.results, r.durations, r.pending, r.dialogs, r.version, r.backups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records an operation outcome.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if r == nil || operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.results.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetPendingDialogs publishes the number of armed dialog steps.
func (r *Recorder) SetPendingDialogs(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}

// DialogOutcome counts how a dialog step ended (completed, cancelled, invalid, expired).
func (r *Recorder) DialogOutcome(outcome string) {
	if r == nil {
		return
	}
	r.dialogs.WithLabelValues(outcome).Inc()
}

// SetBuildingVersion publishes the version of the last saved document.
func (r *Recorder) SetBuildingVersion(v int) {
	if r == nil {
		return
	}
	r.version.Set(float64(v))
}

// BackupResult counts a finished backup upload.
func (r *Recorder) BackupResult(success bool) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.backups.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler returns the /metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.serve(ctx, ln)
}

func (r *Recorder) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.Serve(ln)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
