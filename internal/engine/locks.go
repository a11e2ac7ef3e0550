package engine

import "sync"

// memberLocks serializes mutations per member so score recomputation and
// reward credit cannot interleave across concurrent callers. Locks are
// created on first use and kept for the life of the engine; the set of
// members in one process is small.
type memberLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newMemberLocks() *memberLocks {
	return &memberLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the member's lock and returns the matching unlock.
func (l *memberLocks) lock(memberID int64) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[memberID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[memberID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
