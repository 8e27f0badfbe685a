package service

import "sync"

// scopeLocks serializes evaluation within a tenant scope. Stockout open and
// close and alert dedup are read-modify-write sequences, so two concurrent
// evaluations of the same scope must exclude each other; different scopes
// run in parallel.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a scope key, creating it on first use.
// Mutexes are never removed; the scope population is small and stable.
func (l *scopeLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[key] = m
	return m
}
