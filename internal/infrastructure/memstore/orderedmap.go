package memstore

import (
	"cmp"
	"sort"
)

// OrderedMap is a map with keys iterable in ascending order. Insert
// returns the previous value for the key, matching the substrate contract
// the engine is written against.
type OrderedMap[K cmp.Ordered, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap[K cmp.Ordered, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

// Get returns the value for key.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Insert sets key to value and returns the previous value, if any.
func (m *OrderedMap[K, V]) Insert(key K, value V) (V, bool) {
	prev, had := m.values[key]
	if !had {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
		m.keys = append(m.keys, key)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = key
	}
	m.values[key] = value
	return prev, had
}

// Remove deletes key and returns the removed value, if any.
func (m *OrderedMap[K, V]) Remove(key K) (V, bool) {
	prev, had := m.values[key]
	if !had {
		return prev, false
	}
	delete(m.values, key)
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	return prev, true
}

// Contains reports whether key is present.
func (m *OrderedMap[K, V]) Contains(key K) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int { return len(m.keys) }

// Range calls fn for each entry in ascending key order until fn returns
// false.
func (m *OrderedMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
