// Package metrics counts how the storage gateway serves loads and saves.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "weeklog"
	subsystem = "gateway"
)

// Load sources.
const (
	SourceCache    = "cache"
	SourceRemote   = "remote"
	SourceSentinel = "sentinel"
)

type Metrics struct {
	loads         *prometheus.CounterVec
	saves         *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
}

// New registers the gateway metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "week_loads_total",
			Help:      "Weeks returned by loadWeek, by where they came from",
		}, []string{"source"}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "week_saves_total",
			Help:      "saveWeek calls by outcome",
		}, []string{"outcome"}),
		remoteLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "remote_operation_seconds",
			Help:      "Latency of remote store operations",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op"}),
	}
}

func (m *Metrics) LoadServed(source string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(source).Inc()
}

func (m *Metrics) SaveFinished(outcome string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRemote(op string, started time.Time) {
	if m == nil {
		return
	}
	m.remoteLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Handler routes GET /metrics to g. Responses are compressed when the
// client accepts it.
func Handler(g prometheus.Gatherer) http.Handler {
	rtr := mux.NewRouter()
	rtr.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return handlers.CompressHandler(rtr)
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log logging.Logger) error {
	srv := &http.Server{Addr: addr, Handler: Handler(g), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
