package dspace

import "sync"

// findLocker hands out one mutex per key, dropping it once nobody holds or waits for it.
type findLocker struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newFindLocker() *findLocker {
	return &findLocker{locks: make(map[string]*refMutex)}
}

// lock blocks until key is free and returns its release func. A nil locker never blocks.
func (l *findLocker) lock(key string) func() {
	if l == nil {
		return func() {}
	}

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &refMutex{}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
