// Package metrics holds the prometheus collectors for listing and pruning.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ListBuckets: 1ms to 10s; a listing is one readdir plus one stat per entry.
var ListBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

type Metrics struct {
	ListDuration      prometheus.Histogram
	ListedEntries     prometheus.Counter
	PrunedFiles       *prometheus.CounterVec
	PruneErrors       *prometheus.CounterVec
	PruneLastRunStamp *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ListDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dirkit_list_duration_seconds",
			Help:    "Duration of directory listings in seconds.",
			Buckets: ListBuckets,
		}),
		ListedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirkit_listed_entries_total",
			Help: "Total number of entries returned by directory listings.",
		}),
		PrunedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirkit_pruned_files_total",
			Help: "Total number of files deleted by pruning.",
		}, []string{"target"}),
		PruneErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirkit_prune_errors_total",
			Help: "Total number of failed prune runs.",
		}, []string{"target"}),
		PruneLastRunStamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dirkit_prune_last_run_timestamp",
			Help: "Timestamp of the last prune run (Unix epoch seconds).",
		}, []string{"target"}),
	}

	collectors := []prometheus.Collector{
		m.ListDuration,
		m.ListedEntries,
		m.PrunedFiles,
		m.PruneErrors,
		m.PruneLastRunStamp,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveList(d time.Duration, entries int) {
	if m == nil {
		return
	}
	m.ListDuration.Observe(d.Seconds())
	m.ListedEntries.Add(float64(entries))
}

func (m *Metrics) ObservePrune(target string, deleted int, err error, at time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.PruneErrors.WithLabelValues(target).Inc()
	}
	m.PrunedFiles.WithLabelValues(target).Add(float64(deleted))
	m.PruneLastRunStamp.WithLabelValues(target).Set(float64(at.Unix()))
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
