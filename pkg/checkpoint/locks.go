package checkpoint

import (
	"fmt"
	"sync"

	"taskrecover/pkg/config"
)

// Locker serializes the read-merge-write sequence of saves.
// Lock blocks until the caller owns the lock guarding workerID and returns the release func.
type Locker interface {
	Lock(workerID int) (unlock func())
}

// WorkerLocks holds one mutex per worker id, created on first use.
// Saves for different workers never wait on each other.
type WorkerLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewWorkerLocks creates an empty per-worker lock table
func NewWorkerLocks() *WorkerLocks {
	return &WorkerLocks{locks: make(map[int]*sync.Mutex)}
}

func (w *WorkerLocks) Lock(workerID int) func() {
	w.mu.Lock()
	l, ok := w.locks[workerID]
	if !ok {
		l = &sync.Mutex{}
		w.locks[workerID] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// GlobalLock is a single process-wide lock shared by every worker
type GlobalLock struct {
	mu sync.Mutex
}

// NewGlobalLock creates a process-wide lock
func NewGlobalLock() *GlobalLock {
	return &GlobalLock{}
}

func (g *GlobalLock) Lock(int) func() {
	g.mu.Lock()
	return g.mu.Unlock
}

// NewLocker returns the Locker for a configured lock mode
func NewLocker(mode string) (Locker, error) {
	switch mode {
	case config.LockModeWorker, "":
		return NewWorkerLocks(), nil
	case config.LockModeGlobal:
		return NewGlobalLock(), nil
	default:
		return nil, fmt.Errorf("unknown lock mode %q", mode)
	}
}
