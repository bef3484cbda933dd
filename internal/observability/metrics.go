// Package observability exposes pipeline counters in Prometheus format.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IshaanNene/deskrank/internal/types"
)

// Metrics tracks discovery and scoring counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pages        *prometheus.CounterVec
	discovered   *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	scored       *prometheus.CounterVec
	runSeconds   *prometheus.HistogramVec

	logger *slog.Logger
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskrank",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched by collectors, by outcome.",
		}, []string{"source", "outcome"}),
		discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskrank",
			Name:      "items_discovered_total",
			Help:      "Distinct product codes reported by each collector.",
		}, []string{"source"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskrank",
			Name:      "urls_skipped_total",
			Help:      "Candidate URLs skipped because they were already explored.",
		}, []string{"source"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskrank",
			Name:      "source_failures_total",
			Help:      "Collector runs that failed or were skipped.",
		}, []string{"source"}),
		scored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskrank",
			Name:      "items_scored_total",
			Help:      "Catalog items rescored by the collect run, by outcome.",
		}, []string{"outcome"}),
		runSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskrank",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600},
		}, []string{"run"}),
		logger: logger.With("component", "metrics"),
	}
	reg.MustRegister(m.pages, m.discovered, m.skipped, m.sourceErrors, m.scored, m.runSeconds)
	return m
}

// PageFetched counts one page fetch.
func (m *Metrics) PageFetched(source types.SourceType, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.pages.WithLabelValues(string(source), outcome).Inc()
}

// Discovered counts distinct items reported by a collector.
func (m *Metrics) Discovered(source types.SourceType, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.discovered.WithLabelValues(string(source)).Add(float64(n))
}

// Skipped counts explored URLs skipped by a collector.
func (m *Metrics) Skipped(source types.SourceType, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.WithLabelValues(string(source)).Add(float64(n))
}

// SourceFailed counts a collector that returned an error.
func (m *Metrics) SourceFailed(source types.SourceType) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(string(source)).Inc()
}

// ItemScored counts one rescored catalog item.
func (m *Metrics) ItemScored(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scored.WithLabelValues(outcome).Inc()
}

// ObserveRun records how long a run took.
func (m *Metrics) ObserveRun(run string, d time.Duration) {
	if m == nil {
		return
	}
	m.runSeconds.WithLabelValues(run).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves metrics until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
