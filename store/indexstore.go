package store

import (
	"sync"
)

// ReverseIndexStore maps every part of a composite key to the set of
// composite keys containing it. It backs ListByPart, e.g. resolving a
// user id to all membership keys mentioning it without a full prefix
// scan. Rebuilt from the persisted keys on store open.
type ReverseIndexStore struct {
	index map[string]map[string]struct{}
	mu    sync.RWMutex
}

func NewReverseIndexStore() *ReverseIndexStore {
	return &ReverseIndexStore{
		index: make(map[string]map[string]struct{}),
	}
}

func (s *ReverseIndexStore) AddCompositeKey(compositeKey string, parts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, part := range parts {
		if s.index[part] == nil {
			s.index[part] = make(map[string]struct{})
		}
		s.index[part][compositeKey] = struct{}{}
	}
}

// GetCompositeKeys returns the keys containing the part in no
// particular order.
func (s *ReverseIndexStore) GetCompositeKeys(part string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	compositeKeysMap, exists := s.index[part]
	if !exists {
		return make([]string, 0)
	}

	compositeKeys := make([]string, 0, len(compositeKeysMap))
	for key := range compositeKeysMap {
		compositeKeys = append(compositeKeys, key)
	}

	return compositeKeys
}

func (s *ReverseIndexStore) DeleteCompositeKey(compositeKey string, parts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, part := range parts {
		if compositeKeysMap, exists := s.index[part]; exists {
			delete(compositeKeysMap, compositeKey)
			if len(compositeKeysMap) == 0 {
				delete(s.index, part)
			}
		}
	}
}
