package service

import (
	"fmt"
	"sync"
	"time"
)

// recordLocks serializes work on a single standup record. Validation reads
// the state that execution then mutates, so the pair must run atomically per
// record; commands on different records stay parallel.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*sync.Mutex)}
}

func recordKey(channelID, userID int64, day time.Time) string {
	return fmt.Sprintf("%d:%d:%s", channelID, userID, day.Format("2006-01-02"))
}

// acquire locks the record's mutex and returns the unlock function.
func (l *recordLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
