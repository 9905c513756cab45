package checkpoint

import (
	"fmt"

	"taskrecover/pkg/config"
	errs "taskrecover/pkg/errors"
	"taskrecover/pkg/logger"
)

// Store persists one Record per worker id
type Store interface {
	// Load returns the persisted record, or NewRecord() when the worker has never saved
	Load(workerID int) (Record, error)
	// Save merges partial into the persisted record and writes it back
	Save(workerID int, partial Record) error
	// List returns every persisted record keyed by worker id
	List() (map[int]Record, error)
	// Delete removes a worker's record; deleting a missing record is not an error
	Delete(workerID int) error
	Close() error
}

type options struct {
	locker Locker
	logger logger.Logger
}

// Option configures a store
type Option func(*options)

// WithLocker sets the lock used to serialize saves (per-worker locks by default)
func WithLocker(l Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

// WithLogger sets the logger used for load and save diagnostics
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewWorkerLocks()
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}
	return o
}

// Open creates the store selected by cfg.Backend
func Open(cfg config.CheckpointConfig, log logger.Logger) (Store, error) {
	locker, err := NewLocker(cfg.LockMode)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeConfig, "open store", errs.NoWorker, err)
	}

	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Directory, WithLocker(locker), WithLogger(log))
	case config.BackendBolt:
		return NewBoltStore(cfg.Directory, WithLogger(log))
	default:
		return nil, errs.New(errs.ErrorTypeConfig, "open store", errs.NoWorker,
			fmt.Errorf("unknown checkpoint backend %q", cfg.Backend))
	}
}
