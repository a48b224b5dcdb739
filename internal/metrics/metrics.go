// SPDX-License-Identifier: MIT
// Package metrics exposes pipeline health on a Prometheus endpoint: queue
// backpressure, render cycle timing and transport failures.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	applog "leafpipe/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leafpipe"

// Metrics implements buffer.Observer and render.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Queue
	ChunksQueued   prometheus.Counter
	ChunksDropped  prometheus.Counter
	SamplesDropped prometheus.Counter

	// Render loop
	Cycles        *prometheus.CounterVec // by outcome: "frame" or "empty"
	CycleDuration prometheus.Histogram
	SendFailures  prometheus.Counter
}

// New creates the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChunksQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_queued_total",
			Help:      "Audio chunks accepted by the queue",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_dropped_total",
			Help:      "Audio chunks discarded because the queue was full",
		}),
		SamplesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_dropped_total",
			Help:      "Samples inside discarded chunks",
		}),
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cycles_total",
			Help:      "Render cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_cycle_duration_seconds",
			Help:      "Time spent computing and sending one frame",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~200ms
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_failures_total",
			Help:      "Frames at least one transport failed to deliver",
		}),
	}
}

// ChunkQueued counts an accepted chunk.
func (m *Metrics) ChunkQueued(int) {
	m.ChunksQueued.Inc()
}

// ChunkDropped counts a chunk refused by backpressure.
func (m *Metrics) ChunkDropped(samples int) {
	m.ChunksDropped.Inc()
	m.SamplesDropped.Add(float64(samples))
}

// CycleCompleted records one render cycle.
func (m *Metrics) CycleCompleted(elapsed time.Duration, emitted bool) {
	outcome := "empty"
	if emitted {
		outcome = "frame"
	}
	m.Cycles.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

// SendFailed counts a frame a transport failed to deliver.
func (m *Metrics) SendFailed() {
	m.SendFailures.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})
	defer stop()

	applog.Infof("metrics: serving on %s/metrics", listener.Addr())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
