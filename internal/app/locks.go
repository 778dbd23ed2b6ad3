package app

import (
	"sync"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// slotLocks hands out one mutex per slot so writers to different slots never
// wait on each other. Entries are dropped once no goroutine holds or awaits
// them.
type slotLocks struct {
	mu sync.Mutex
	m  map[domain.SlotRef]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{m: make(map[domain.SlotRef]*slotLock)}
}

// lock blocks until the slot is held and returns the matching unlock.
func (l *slotLocks) lock(ref domain.SlotRef) func() {
	l.mu.Lock()
	entry, ok := l.m[ref]
	if !ok {
		entry = &slotLock{}
		l.m[ref] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, ref)
		}
		l.mu.Unlock()
	}
}
