package engine

import "sync"

// accountLocks hands out one mutex per account. Entries are dropped once no
// goroutine holds or waits on them.
type accountLocks struct {
	locks map[string]*accountLock
	mu    sync.Mutex
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		locks: make(map[string]*accountLock),
	}
}

// lock blocks until the account's mutex is held and returns its release func.
func (l *accountLocks) lock(accountID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[accountID]
	if !ok {
		entry = &accountLock{}
		l.locks[accountID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, accountID)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
