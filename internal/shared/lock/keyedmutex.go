// Package lock provides small in-process locking primitives.
package lock

import "sync"

// KeyedMutex serializes critical sections per key. Different keys proceed
// in parallel; the same key is strictly sequential. Used to serialize
// entitlement reconciliation per user.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates a new KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[uint]*entry),
	}
}

// Lock acquires the mutex for the given key, blocking until available.
func (k *KeyedMutex) Lock(key uint) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given key. Entries with no waiters are
// removed so the map does not grow with the user population.
func (k *KeyedMutex) Unlock(key uint) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("lock: unlock of unheld keyed mutex")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
