package settlement

import "sync"

// accountLocks hands out one mutex per sender account. The settlement holds it
// across the limit check and the ledger commit, so two concurrent transfers
// from the same sender cannot both pass admission against the same headroom.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uint64]*sync.Mutex)}
}

func (l *accountLocks) lock(accountID uint64) func() {
	l.mu.Lock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
