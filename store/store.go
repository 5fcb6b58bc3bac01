package store

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"devspace-operator/interfaces"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var storeLogger *slog.Logger

func Setup(logManager interfaces.LogManager) {
	storeLogger = logManager.CreateLogger("store")
}

var (
	ErrNotFound  = errors.New("not found")
	ErrKeyExists = errors.New("key already exists")
)

const indexPrefix = "index"
const keySeparator = "___"

// IndexEntry declares a unique secondary key (e.g. a user email)
// maintained transactionally with the record it points to.
type IndexEntry struct {
	Name  string
	Value string
}

type Store struct {
	db         *badger.DB
	mu         sync.RWMutex
	indexStore *ReverseIndexStore
	gcTicker   *time.Ticker
}

// NewStore opens the record store. An empty path opens an in-memory
// instance (used by tests).
func NewStore(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).
			WithMemTableSize(16 << 20).
			WithNumMemtables(2).
			WithNumLevelZeroTables(1).
			WithNumLevelZeroTablesStall(2)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, indexStore: NewReverseIndexStore()}
	err = s.hydrateIndex()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// hydrateIndex rebuilds the in-memory reverse index from the persisted
// keys, so index-backed reads work across restarts of a disk-backed
// store. Keys only, values are never touched.
func (s *Store) hydrateIndex() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, indexPrefix+keySeparator) {
				continue
			}
			s.indexStore.AddCompositeKey(key, strings.Split(key, keySeparator)...)
		}
		return nil
	})
}

// StartGC runs badger value log garbage collection every 5 minutes
// until Close is called.
func (s *Store) StartGC() {
	s.gcTicker = time.NewTicker(5 * time.Minute)
	go func() {
		for range s.gcTicker.C {
			err := s.RunGC()
			if err != nil && storeLogger != nil {
				storeLogger.Debug("Error running store GC", "error", err)
			}
		}
	}()
}

func (s *Store) RunGC() error {
	return s.db.RunValueLogGC(0.7)
}

func (s *Store) Close() error {
	if s.gcTicker != nil {
		s.gcTicker.Stop()
	}
	return s.db.Close()
}

func CreateKey(parts ...string) string {
	return strings.Join(parts, keySeparator)
}

func indexKey(name string, value string) string {
	return CreateKey(indexPrefix, name, value)
}

// Create is a conditional write: it fails with ErrKeyExists when the
// record key or any declared index key is already present. Record and
// indexes are written in one badger transaction, so concurrent creates
// of the same key resolve to exactly one winner.
func (s *Store) Create(value interface{}, indexes []IndexEntry, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := CreateKey(keys...)
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return ErrKeyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for _, index := range indexes {
			ik := []byte(indexKey(index.Name, index.Value))
			_, err := txn.Get(ik)
			if err == nil {
				return ErrKeyExists
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(ik, []byte(key)); err != nil {
				return err
			}
		}
		return txn.Set([]byte(key), valueBytes)
	})
	if err != nil {
		return err
	}

	s.indexStore.AddCompositeKey(key, keys...)
	return nil
}

// Set overwrites the record unconditionally, creating it if absent.
func (s *Store) Set(value interface{}, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := CreateKey(keys...)
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), valueBytes)
	})
	if err != nil {
		return err
	}

	s.indexStore.AddCompositeKey(key, keys...)
	return nil
}

// Delete removes the record and any index entries pointing at it.
func (s *Store) Delete(indexes []IndexEntry, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := CreateKey(keys...)
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, index := range indexes {
			err := txn.Delete([]byte(indexKey(index.Name, index.Value)))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return err
	}

	s.indexStore.DeleteCompositeKey(key, keys...)
	return nil
}

func (s *Store) Exists(keys ...string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := CreateKey(keys...)
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) get(key string) ([]byte, error) {
	var valueBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		valueBytes, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return valueBytes, err
}

// Get unmarshals the record behind the composite key.
func Get[T any](s *Store, keys ...string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	valueBytes, err := s.get(CreateKey(keys...))
	if err != nil {
		return nil, err
	}
	result := new(T)
	err = json.Unmarshal(valueBytes, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIndex resolves a unique secondary key to its record.
func GetByIndex[T any](s *Store, indexName string, indexValue string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recordKey, err := s.get(indexKey(indexName, indexValue))
	if err != nil {
		return nil, err
	}
	valueBytes, err := s.get(string(recordKey))
	if err != nil {
		return nil, err
	}
	result := new(T)
	err = json.Unmarshal(valueBytes, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByPrefix returns all records under the key prefix in key order,
// paginated with offset/limit. A limit of 0 means no limit.
func ListByPrefix[T any](s *Store, offset int, limit int, prefixParts ...string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := []byte(CreateKey(prefixParts...) + keySeparator)
	result := []T{}
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(result) >= limit {
				break
			}
			valueBytes, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var entry T
			err = json.Unmarshal(valueBytes, &entry)
			if err != nil {
				return err
			}
			result = append(result, entry)
		}
		return nil
	})
	return result, err
}

// ListByPart resolves records through the reverse index: every record
// under the key prefix whose composite key contains the given part,
// e.g. all memberships mentioning one user id. Returned in key order.
// Dangling index entries are skipped.
func ListByPart[T any](s *Store, part string, prefixParts ...string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := CreateKey(prefixParts...) + keySeparator
	keys := s.indexStore.GetCompositeKeys(part)
	sort.Strings(keys)

	result := []T{}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		valueBytes, err := s.get(key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var entry T
		err = json.Unmarshal(valueBytes, &entry)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}
