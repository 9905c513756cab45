package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"taskrecover/internal/metrics"
	errs "taskrecover/pkg/errors"
	"taskrecover/pkg/logger"
)

const (
	// BoltFileName is the database file created inside the checkpoint directory
	BoltFileName = "checkpoints.db"

	bucketCheckpoints = "checkpoints"
)

// BoltStore keeps all worker records in one bbolt database, one key per worker.
// bbolt runs a single write transaction at a time, so saves need no extra lock.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	logger logger.Logger
}

// NewBoltStore opens (or creates) dir/checkpoints.db
func NewBoltStore(dir string, opts ...Option) (*BoltStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "open store", errs.NoWorker, fmt.Errorf("checkpoint directory is required"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.New(errs.ErrorTypeStorage, "open store", errs.NoWorker,
			fmt.Errorf("failed to create checkpoints directory: %w", err))
	}

	path := filepath.Join(dir, BoltFileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.New(errs.ErrorTypeStorage, "open store", errs.NoWorker,
			fmt.Errorf("failed to open checkpoint database: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCheckpoints))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.New(errs.ErrorTypeStorage, "open store", errs.NoWorker,
			fmt.Errorf("failed to initialize checkpoint bucket: %w", err))
	}

	o := buildOptions(opts)
	return &BoltStore{db: db, path: path, logger: o.logger}, nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.path
}

func workerKey(workerID int) []byte {
	return []byte(strconv.Itoa(workerID))
}

func decodeRecord(data []byte, workerID int) (Record, error) {
	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.New(errs.ErrorTypeDecode, "load", workerID,
			fmt.Errorf("failed to decode checkpoint: %w", err))
	}
	return rec, nil
}

// Load reads a worker's record; a missing key yields a fresh record
func (s *BoltStore) Load(workerID int) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketCheckpoints)).Get(workerKey(workerID))
		if data == nil {
			return nil
		}
		// data is only valid inside the transaction
		decoded, err := decodeRecord(data, workerID)
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	if err != nil {
		metrics.ObserveLoad(metrics.OutcomeError)
		if errs.TypeOf(err) == errs.ErrorTypeUnknown {
			err = errs.New(errs.ErrorTypeStorage, "load", workerID, err)
		}
		return nil, err
	}

	if rec == nil {
		metrics.ObserveLoad(metrics.OutcomeFresh)
		s.logger.InfoWithFields("No checkpoint found, starting fresh", map[string]interface{}{
			"worker_id": workerID,
		})
		return NewRecord(), nil
	}

	metrics.ObserveLoad(metrics.OutcomeRestored)
	s.logger.InfoWithFields("Restored from checkpoint", map[string]interface{}{
		"worker_id":  workerID,
		"task_count": rec.TaskCount(),
	})
	return rec, nil
}

// Save merges partial into the persisted record inside one update transaction
func (s *BoltStore) Save(workerID int, partial Record) error {
	start := time.Now()
	var merged Record

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketCheckpoints))
		current := NewRecord()
		if data := bucket.Get(workerKey(workerID)); data != nil {
			decoded, err := decodeRecord(data, workerID)
			if err != nil {
				return err
			}
			current = decoded
		}
		merged = current.Merge(partial)

		payload, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode checkpoint: %w", err)
		}
		return bucket.Put(workerKey(workerID), payload)
	})
	if err != nil {
		metrics.ObserveSave(start, metrics.OutcomeError)
		if errs.TypeOf(err) == errs.ErrorTypeUnknown {
			err = errs.New(errs.ErrorTypeStorage, "save", workerID, err)
		}
		return err
	}

	metrics.ObserveSave(start, metrics.OutcomeOK)
	s.logger.InfoWithFields("Checkpoint saved", map[string]interface{}{
		"worker_id":  workerID,
		"task_count": merged.TaskCount(),
	})
	return nil
}

// List returns every record in the bucket keyed by worker id
func (s *BoltStore) List() (map[int]Record, error) {
	out := make(map[int]Record)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketCheckpoints)).ForEach(func(k, v []byte) error {
			workerID, err := strconv.Atoi(string(k))
			if err != nil {
				return nil
			}
			rec, err := decodeRecord(v, workerID)
			if err != nil {
				return err
			}
			out[workerID] = rec
			return nil
		})
	})
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeUnknown {
			err = errs.New(errs.ErrorTypeStorage, "list", errs.NoWorker, err)
		}
		return nil, err
	}
	return out, nil
}

// Delete removes a worker's key
func (s *BoltStore) Delete(workerID int) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketCheckpoints)).Delete(workerKey(workerID))
	})
	if err != nil {
		return errs.New(errs.ErrorTypeStorage, "delete", workerID, err)
	}

	s.logger.InfoWithFields("Checkpoint deleted", map[string]interface{}{
		"worker_id": workerID,
	})
	return nil
}

// Close releases the database file lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}
