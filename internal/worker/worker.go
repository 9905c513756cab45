package worker

import (
	"context"
	"fmt"
	"time"

	"taskrecover/internal/metrics"
	"taskrecover/pkg/checkpoint"
	"taskrecover/pkg/logger"
	"taskrecover/pkg/retry"
)

// State is a step of the worker loop
type State int

const (
	StateFetching State = iota
	StateDeciding
	StateWorking
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "FETCHING"
	case StateDeciding:
		return "DECIDING"
	case StateWorking:
		return "WORKING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the part of the checkpoint store a worker needs
type Store interface {
	Load(workerID int) (checkpoint.Record, error)
	Save(workerID int, partial checkpoint.Record) error
}

// Config controls one worker loop
type Config struct {
	// Threshold is the task_count at which the worker is done
	Threshold int
	// WorkDelay is the simulated duration of one task
	WorkDelay time.Duration
	// SaveAttempts bounds retries of a failing storage save
	SaveAttempts int
	// SaveRetryDelay is the base backoff between save attempts
	SaveRetryDelay time.Duration
}

// Result summarizes one Run
type Result struct {
	WorkerID int
	// StartCount is the task_count found by the first load
	StartCount int
	// FinalCount is the last task_count the worker observed or committed
	FinalCount int
	// TasksDone counts tasks committed during this run
	TasksDone int
	Crashes   int
	Completed bool
	Duration  time.Duration
	// Err is the error that stopped the worker, nil when it completed
	Err error
}

// Resumed reports whether the worker picked up progress from an earlier run
func (r Result) Resumed() bool {
	return r.StartCount > 0
}

// Worker drives one worker id from its last checkpoint to the threshold
type Worker struct {
	id       int
	store    Store
	injector FailureInjector
	cfg      Config
	logger   logger.Logger

	// onTransition, when set, observes every state change
	onTransition func(from, to State)
}

// New creates a worker; a nil injector never crashes
func New(id int, store Store, injector FailureInjector, cfg Config, log logger.Logger) *Worker {
	if injector == nil {
		injector = NeverCrash()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.SaveAttempts < 1 {
		cfg.SaveAttempts = 1
	}

	return &Worker{
		id:       id,
		store:    store,
		injector: injector,
		cfg:      cfg,
		logger:   log.WithField("worker_id", id),
	}
}

// Run executes the loop until the persisted task_count reaches the threshold.
// An injected crash discards the in-memory record and goes back to loading.
// Run returns early with an error when ctx is done or when the store fails.
func (w *Worker) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res.WorkerID = w.id

	metrics.WorkerStarted()
	outcome := metrics.OutcomeFailed
	defer func() {
		res.Duration = time.Since(start)
		metrics.WorkerStopped(outcome)
	}()

	var (
		state  = StateFetching
		rec    checkpoint.Record
		loaded bool
	)

	for {
		if err := ctx.Err(); err != nil {
			outcome = metrics.OutcomeCancelled
			w.logger.WithField("task_count", res.FinalCount).Warn("Stopped before completing all tasks")
			return res, err
		}

		switch state {
		case StateFetching:
			rec, err = w.store.Load(w.id)
			if err != nil {
				w.logger.WithError(err).Error("Failed to load checkpoint")
				return res, err
			}
			if !loaded {
				res.StartCount = rec.TaskCount()
				loaded = true
			}
			res.FinalCount = rec.TaskCount()
			state = w.transition(state, StateDeciding)

		case StateDeciding:
			if rec.TaskCount() >= w.cfg.Threshold {
				state = w.transition(state, StateDone)
				continue
			}
			if w.injector.ShouldCrash() {
				res.Crashes++
				metrics.ObserveCrash(w.id)
				w.logger.Warn("Crashed, reloading from last checkpoint")
				rec = nil
				state = w.transition(state, StateFetching)
				continue
			}
			state = w.transition(state, StateWorking)

		case StateWorking:
			next := rec.Clone()
			next[checkpoint.FieldTaskCount]++
			w.logger.WithField("task", next.TaskCount()).Info("Processing task")

			if err := w.save(ctx, next); err != nil {
				w.logger.WithError(err).Error("Failed to save checkpoint")
				return res, err
			}
			res.TasksDone++
			res.FinalCount = next.TaskCount()
			metrics.ObserveTask(w.id)

			if err := retry.Wait(ctx, w.cfg.WorkDelay); err != nil {
				continue
			}
			state = w.transition(state, StateFetching)

		case StateDone:
			res.Completed = true
			outcome = metrics.OutcomeCompleted
			w.logger.WithFields(map[string]interface{}{
				"task_count": rec.TaskCount(),
				"crashes":    res.Crashes,
			}).Info("Completed all tasks")
			return res, nil
		}
	}
}

// save persists rec, retrying storage failures with exponential backoff
func (w *Worker) save(ctx context.Context, rec checkpoint.Record) error {
	return retry.Do(func() error {
		return w.store.Save(w.id, rec)
	}, &retry.Config{
		MaxAttempts: w.cfg.SaveAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    w.cfg.SaveRetryDelay,
			MaxDelay:     20 * w.cfg.SaveRetryDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  w.logger,
	})
}

func (w *Worker) transition(from, to State) State {
	w.logger.DebugWithFields("State transition", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if w.onTransition != nil {
		w.onTransition(from, to)
	}
	return to
}
