package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskrecover/internal/worker"
	"taskrecover/pkg/config"
	"taskrecover/pkg/logger"
)

// Config holds the pool settings
type Config struct {
	Workers            int
	FailureProbability float64
	// Seed seeds worker i's injector with Seed+i; zero picks a time based base seed
	Seed   int64
	Worker worker.Config
}

// FromConfig maps the application configuration onto pool settings
func FromConfig(cfg *config.Config) Config {
	return Config{
		Workers:            cfg.Workers.Count,
		FailureProbability: cfg.Workers.FailureProbability,
		Seed:               cfg.Workers.Seed,
		Worker: worker.Config{
			Threshold:      cfg.Workers.Threshold,
			WorkDelay:      cfg.Workers.WorkDelay,
			SaveAttempts:   cfg.Checkpoint.SaveAttempts,
			SaveRetryDelay: cfg.Checkpoint.SaveRetryDelay,
		},
	}
}

// InjectorFactory builds the failure injector of one worker
type InjectorFactory func(workerID int) worker.FailureInjector

// Summary is the outcome of one pool run
type Summary struct {
	Results  []worker.Result
	Duration time.Duration
}

// Completed counts the workers that reached the threshold
func (s Summary) Completed() int {
	n := 0
	for _, r := range s.Results {
		if r.Completed {
			n++
		}
	}
	return n
}

// TotalTasks sums the tasks committed in this run
func (s Summary) TotalTasks() int {
	n := 0
	for _, r := range s.Results {
		n += r.TasksDone
	}
	return n
}

// TotalCrashes sums the injected crashes of this run
func (s Summary) TotalCrashes() int {
	n := 0
	for _, r := range s.Results {
		n += r.Crashes
	}
	return n
}

// Pool launches one worker per id 0..Workers-1 and waits for all of them
type Pool struct {
	cfg         Config
	store       worker.Store
	newInjector InjectorFactory
	logger      logger.Logger
	baseSeed    int64
}

// Option configures a Pool
type Option func(*Pool)

// WithInjectorFactory replaces the default random injectors
func WithInjectorFactory(f InjectorFactory) Option {
	return func(p *Pool) {
		p.newInjector = f
	}
}

// NewPool creates a pool running against store
func NewPool(store worker.Store, cfg Config, log logger.Logger, opts ...Option) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Pool{
		cfg:      cfg,
		store:    store,
		logger:   log,
		baseSeed: cfg.Seed,
	}
	if p.baseSeed == 0 {
		p.baseSeed = time.Now().UnixNano()
	}
	p.newInjector = p.randomInjector
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) randomInjector(workerID int) worker.FailureInjector {
	return worker.NewRandomInjector(p.cfg.FailureProbability, p.baseSeed+int64(workerID))
}

// Run starts every worker and blocks until all of them return.
// A failing worker does not stop the others; its error is joined into the result.
func (p *Pool) Run(ctx context.Context) (Summary, error) {
	if p.cfg.Workers <= 0 {
		return Summary{}, fmt.Errorf("worker count must be positive, got %d", p.cfg.Workers)
	}

	start := time.Now()
	logger.LogComponentStart(p.logger, "pool", map[string]interface{}{
		"workers":             p.cfg.Workers,
		"threshold":           p.cfg.Worker.Threshold,
		"failure_probability": p.cfg.FailureProbability,
		"work_delay":          p.cfg.Worker.WorkDelay,
	})

	results := make([]worker.Result, p.cfg.Workers)
	workerErrs := make([]error, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := worker.New(id, p.store, p.newInjector(id), p.cfg.Worker, p.logger)
			res, err := w.Run(ctx)
			if err != nil {
				res.Err = fmt.Errorf("worker %d: %w", id, err)
				workerErrs[id] = res.Err
			}
			results[id] = res
		}(i)
	}
	wg.Wait()

	summary := Summary{Results: results, Duration: time.Since(start)}
	err := errors.Join(workerErrs...)

	reason := "all workers completed"
	switch {
	case ctx.Err() != nil:
		reason = "cancelled"
	case err != nil:
		reason = "worker failures"
	}
	logger.LogComponentStop(p.logger.WithFields(map[string]interface{}{
		"completed": summary.Completed(),
		"tasks":     summary.TotalTasks(),
		"crashes":   summary.TotalCrashes(),
		"duration":  summary.Duration,
	}), "pool", reason)

	return summary, err
}
