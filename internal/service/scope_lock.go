package service

import "sync"

// ScopeLocker serializes check-then-commit sequences per (exam, grade) scope.
// Two concurrent invocations for the same scope cannot both pass a conflict
// check against stale data and then both commit.
type ScopeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScopeLocker creates an empty locker.
func NewScopeLocker() *ScopeLocker {
	return &ScopeLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the named scope is free and returns its release func.
func (l *ScopeLocker) Acquire(key string) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
