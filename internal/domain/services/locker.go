package services

import "sync"

// EditLocker hands out one mutex per edit ID so reviews of the same edit
// run one at a time within a process. Entries are dropped when unused.
type EditLocker struct {
	mu    sync.Mutex
	locks map[int64]*editLock
}

type editLock struct {
	mu   sync.Mutex
	refs int
}

// NewEditLocker creates a new EditLocker.
func NewEditLocker() *EditLocker {
	return &EditLocker{locks: make(map[int64]*editLock)}
}

// Lock blocks until the caller holds the lock for id and returns the
// function that releases it.
func (l *EditLocker) Lock(id int64) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &editLock{}
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

// held returns the number of IDs currently tracked.
func (l *EditLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
