package core

import "sync"

// keyedMutex hands out one mutex per key. Entries are never released;
// the key space (workspace ids, namespaces) is small and bounded by
// the record store.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (self *keyedMutex) get(key string) *sync.Mutex {
	self.mu.Lock()
	defer self.mu.Unlock()
	lock, ok := self.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		self.locks[key] = lock
	}
	return lock
}

func (self *keyedMutex) Lock(key string) {
	self.get(key).Lock()
}

func (self *keyedMutex) Unlock(key string) {
	self.get(key).Unlock()
}
