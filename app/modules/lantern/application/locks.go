package lanternservice

import (
	"sync"

	"github.com/google/uuid"
)

// stationLocks serializes work on one station inside this process. Entries are dropped once
// nobody holds or waits on them.
type stationLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*stationLock
}

type stationLock struct {
	mu   sync.Mutex
	refs int
}

func newStationLocks() *stationLocks {
	return &stationLocks{locks: make(map[uuid.UUID]*stationLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *stationLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &stationLock{}
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

func (l *stationLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
