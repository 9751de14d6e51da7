package scheduler

import "sync"

// userLocks serializes work on one chat across the notify tick, the rollover
// and front-end calls. Entries are dropped once no goroutine holds or waits for them.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[int64]*userLock)}
}

// lock blocks until chatID is free and returns the matching unlock.
func (l *userLocks) lock(chatID int64) func() {
	l.mu.Lock()
	ul, ok := l.m[chatID]
	if !ok {
		ul = &userLock{}
		l.m[chatID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, chatID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
