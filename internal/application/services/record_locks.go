package services

import "sync"

// RecordLocks serializes state transitions per record id inside one process.
// The database compare-and-swap remains the guard across processes.
type RecordLocks struct {
	mu    sync.Mutex
	locks map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

// NewRecordLocks creates an empty lock table
func NewRecordLocks() *RecordLocks {
	return &RecordLocks{locks: make(map[string]*recordLock)}
}

// Lock blocks until id is free and returns the matching unlock func
func (l *RecordLocks) Lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &recordLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
