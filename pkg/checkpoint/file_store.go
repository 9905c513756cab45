package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"taskrecover/internal/metrics"
	errs "taskrecover/pkg/errors"
	"taskrecover/pkg/logger"
)

const (
	filePrefix = "checkpoint_"
	fileSuffix = ".json"
)

// FileStore keeps each worker's record in its own JSON file under one directory
type FileStore struct {
	dir    string
	locker Locker
	logger logger.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating dir if needed
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "open store", errs.NoWorker, fmt.Errorf("checkpoint directory is required"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.New(errs.ErrorTypeStorage, "open store", errs.NoWorker,
			fmt.Errorf("failed to create checkpoints directory: %w", err))
	}

	o := buildOptions(opts)
	return &FileStore{
		dir:    dir,
		locker: o.locker,
		logger: o.logger,
	}, nil
}

// Path returns the checkpoint file of a worker
func (s *FileStore) Path(workerID int) string {
	return filepath.Join(s.dir, filePrefix+strconv.Itoa(workerID)+fileSuffix)
}

// Load reads a worker's record; a missing file yields a fresh record
func (s *FileStore) Load(workerID int) (Record, error) {
	path := s.Path(workerID)
	rec, found, err := readRecordFile(path, workerID)
	if err != nil {
		metrics.ObserveLoad(metrics.OutcomeError)
		return nil, err
	}

	if !found {
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

// Save merges partial into the worker's persisted record under the worker's lock
// and replaces the file atomically.
func (s *FileStore) Save(workerID int, partial Record) error {
	start := time.Now()
	unlock := s.locker.Lock(workerID)
	defer unlock()

	path := s.Path(workerID)
	current, found, err := readRecordFile(path, workerID)
	if err != nil {
		metrics.ObserveSave(start, metrics.OutcomeError)
		return err
	}
	if !found {
		current = NewRecord()
	}
	merged := current.Merge(partial)

	if err := writeRecordFile(path, merged); err != nil {
		metrics.ObserveSave(start, metrics.OutcomeError)
		return errs.New(errs.ErrorTypeStorage, "save", workerID, err)
	}

	metrics.ObserveSave(start, metrics.OutcomeOK)
	s.logger.InfoWithFields("Checkpoint saved", map[string]interface{}{
		"worker_id":  workerID,
		"task_count": merged.TaskCount(),
	})
	return nil
}

// List returns every record in the directory keyed by worker id
func (s *FileStore) List() (map[int]Record, error) {
	out := make(map[int]Record)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, errs.New(errs.ErrorTypeStorage, "list", errs.NoWorker, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		workerID, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		rec, found, err := readRecordFile(filepath.Join(s.dir, e.Name()), workerID)
		if err != nil {
			return nil, err
		}
		if found {
			out[workerID] = rec
		}
	}

	return out, nil
}

// Delete removes a worker's checkpoint file
func (s *FileStore) Delete(workerID int) error {
	unlock := s.locker.Lock(workerID)
	defer unlock()

	if err := os.Remove(s.Path(workerID)); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.ErrorTypeStorage, "delete", workerID, err)
	}

	s.logger.InfoWithFields("Checkpoint deleted", map[string]interface{}{
		"worker_id": workerID,
	})
	return nil
}

// Close is a no-op; files are not held open between operations
func (s *FileStore) Close() error {
	return nil
}

// parseFileName extracts the worker id from "checkpoint_<id>.json"
func parseFileName(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return 0, false
	}
	return id, true
}

func readRecordFile(path string, workerID int) (Record, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.New(errs.ErrorTypeStorage, "load", workerID,
			fmt.Errorf("failed to read checkpoint file: %w", err))
	}

	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, errs.New(errs.ErrorTypeDecode, "load", workerID,
			fmt.Errorf("failed to decode checkpoint %s: %w", path, err))
	}
	return rec, true, nil
}

// writeRecordFile writes rec to a temp file, syncs it and renames it over path
func writeRecordFile(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	data = append(data, '\n')

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	return nil
}
