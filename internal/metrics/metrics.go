package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"taskrecover/pkg/logger"
)

const namespace = "taskrecover"

// Outcome label values
const (
	OutcomeRestored  = "restored"
	OutcomeFresh     = "fresh"
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	// Registry is a dedicated Prometheus registry for all taskrecover metrics.
	Registry = prometheus.NewRegistry()

	// CheckpointLoads counts checkpoint loads by outcome.
	CheckpointLoads = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_loads_total",
			Help:      "Total number of checkpoint loads",
		},
		[]string{"outcome"}, // restored | fresh | error
	)

	// CheckpointSaves counts checkpoint saves by outcome.
	CheckpointSaves = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_saves_total",
			Help:      "Total number of checkpoint saves",
		},
		[]string{"outcome"}, // ok | error
	)

	// SaveDuration measures the read-merge-write cycle of a save.
	SaveDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_save_duration_ms",
			Help:      "Duration of checkpoint saves in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// TasksProcessed counts tasks committed per worker.
	TasksProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Tasks processed and checkpointed",
		},
		[]string{"worker"},
	)

	// Crashes counts injected crashes per worker.
	Crashes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crashes_total",
			Help:      "Injected crashes recovered from the last checkpoint",
		},
		[]string{"worker"},
	)

	// WorkersActive reports workers currently running their loop.
	WorkersActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of workers currently running",
		},
	)

	// WorkersFinished counts workers that left their loop, by outcome.
	WorkersFinished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_finished_total",
			Help:      "Workers that stopped, by outcome",
		},
		[]string{"outcome"}, // completed | failed | cancelled
	)

	// Up is a liveness gauge for the process.
	Up = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 if the simulation is running",
		},
	)
)

func init() {
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	Registry.MustRegister(prometheus.NewGoCollector())
	Up.Set(1)
}

// ObserveLoad records a checkpoint load outcome.
func ObserveLoad(outcome string) {
	CheckpointLoads.WithLabelValues(outcome).Inc()
}

// ObserveSave records timing and outcome for a checkpoint save.
func ObserveSave(start time.Time, outcome string) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	SaveDuration.Observe(elapsed)
	CheckpointSaves.WithLabelValues(outcome).Inc()
}

// ObserveTask records one committed task for a worker.
func ObserveTask(workerID int) {
	TasksProcessed.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// ObserveCrash records one injected crash for a worker.
func ObserveCrash(workerID int) {
	Crashes.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// WorkerStarted marks a worker loop as running.
func WorkerStarted() {
	WorkersActive.Inc()
}

// WorkerStopped marks a worker loop as stopped with the given outcome.
func WorkerStopped(outcome string) {
	WorkersActive.Dec()
	WorkersFinished.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler exposing Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve starts the /metrics HTTP endpoint on addr and blocks until ctx is done.
func Serve(ctx context.Context, addr string, log logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	idleClosed := make(chan struct{})
	go func() {
		defer close(idleClosed)
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.WithField("address", addr).Info("Prometheus endpoint listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-idleClosed
		return nil
	}

	return err
}
