package sync

import (
	gosync "sync"
)

// keyedMutex serializes writers per key. The orchestrator keys on
// (listing, platform) so concurrent operations on the same platform row
// queue up instead of racing, while unrelated rows proceed in parallel.
//
// Implemented on the standard library: the per-key entries are plain
// mutexes with reference counting so idle keys do not accumulate.
type keyedMutex struct {
	mu      gosync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   gosync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Lock blocks until the key is held and returns the matching unlock func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
