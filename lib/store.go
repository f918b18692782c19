package lib

import "sync"

// Store is an append-only list of records.
type Store[T any] struct {
	lock    sync.RWMutex
	records []T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{}
}

// Append adds a record and returns its index.
func (s *Store[T]) Append(v T) uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.records = append(s.records, v)
	return uint64(len(s.records) - 1)
}

// Last returns the most recent record.
func (s *Store[T]) Last() (T, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var zero T
	if len(s.records) == 0 {
		return zero, false
	}
	return s.records[len(s.records)-1], true
}

// Len is the number of records.
func (s *Store[T]) Len() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return uint64(len(s.records))
}

// All copies every record.
func (s *Store[T]) All() []T {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Range returns up to limit records starting at index from. A zero limit
// means no limit.
func (s *Store[T]) Range(from, limit uint64) []T {
	s.lock.RLock()
	defer s.lock.RUnlock()
	n := uint64(len(s.records))
	if from >= n {
		return []T{}
	}
	end := n
	if limit > 0 && from+limit < n {
		end = from + limit
	}
	out := make([]T, end-from)
	copy(out, s.records[from:end])
	return out
}

// KeyValueStore keeps the latest value per key, remembering insertion order.
type KeyValueStore[K comparable, V any] struct {
	lock   sync.RWMutex
	values map[K]V
	keys   []K
}

func NewKeyValueStore[K comparable, V any]() *KeyValueStore[K, V] {
	return &KeyValueStore[K, V]{values: make(map[K]V)}
}

func (s *KeyValueStore[K, V]) Set(k K, v V) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.values[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.values[k] = v
}

func (s *KeyValueStore[K, V]) Get(k K) (V, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[k]
	return v, ok
}

// Keys lists the keys in insertion order.
func (s *KeyValueStore[K, V]) Keys() []K {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]K, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *KeyValueStore[K, V]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.keys)
}

// KeyValuesStore keeps every value appended under a key.
type KeyValuesStore[K comparable, V any] struct {
	lock   sync.RWMutex
	values map[K][]V
	keys   []K
}

func NewKeyValuesStore[K comparable, V any]() *KeyValuesStore[K, V] {
	return &KeyValuesStore[K, V]{values: make(map[K][]V)}
}

func (s *KeyValuesStore[K, V]) Append(k K, v V) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.values[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.values[k] = append(s.values[k], v)
}

func (s *KeyValuesStore[K, V]) Get(k K) []V {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]V, len(s.values[k]))
	copy(out, s.values[k])
	return out
}

func (s *KeyValuesStore[K, V]) Keys() []K {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]K, len(s.keys))
	copy(out, s.keys)
	return out
}
