package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Store with LRU eviction and per-key TTL.
// Expired entries are dropped on access and by CleanupExpired.
type Memory struct {
	capacity int
	prefix   string
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*entry
	order *list.List // front = most recently used
}

type entry struct {
	key       string
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time
	element   *list.Element
}

func NewMemory(capacity int, prefix string) *Memory {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Memory{
		capacity: capacity,
		prefix:   prefix,
		now:      time.Now,
		items:    make(map[string]*entry),
		order:    list.New(),
	}
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache: ttl must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.upsert(m.prefix + key)
	e.value = append([]byte(nil), value...)
	e.list = nil
	e.isList = false
	e.expiresAt = m.now().Add(ttl)
	return nil
}

func (m *Memory) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("cache: ttl must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(m.prefix + key); ok {
		return false, nil
	}
	e := m.upsert(m.prefix + key)
	e.value = append([]byte(nil), value...)
	e.list = nil
	e.isList = false
	e.expiresAt = m.now().Add(ttl)
	return true, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(m.prefix + key)
	if !ok || e.isList {
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) Take(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(m.prefix + key)
	if !ok || e.isList {
		return nil, ErrMiss
	}
	m.remove(e)
	return e.value, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if e, ok := m.items[m.prefix+key]; ok {
			m.remove(e)
		}
	}
	return nil
}

func (m *Memory) Append(_ context.Context, key string, value []byte, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("cache: ttl must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(m.prefix + key)
	if !ok || !e.isList {
		e = m.upsert(m.prefix + key)
		e.value = nil
		e.list = nil
		e.isList = true
	}
	e.list = append(e.list, append([]byte(nil), value...))
	e.expiresAt = m.now().Add(ttl)
	return int64(len(e.list)), nil
}

func (m *Memory) Range(_ context.Context, key string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(m.prefix + key)
	if !ok || !e.isList {
		return nil, nil
	}
	out := make([][]byte, len(e.list))
	for i, v := range e.list {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

// CleanupExpired drops every expired entry and returns how many it removed.
func (m *Memory) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, e := range m.items {
		if now.After(e.expiresAt) {
			m.remove(e)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// lookup returns a live entry and marks it recently used.
// Must be called with lock held.
func (m *Memory) lookup(key string) (*entry, bool) {
	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.remove(e)
		return nil, false
	}
	m.order.MoveToFront(e.element)
	return e, true
}

// upsert returns the entry for key, creating it and evicting the least
// recently used entries when at capacity. Must be called with lock held.
func (m *Memory) upsert(key string) *entry {
	if e, ok := m.items[key]; ok {
		m.order.MoveToFront(e.element)
		return e
	}
	for len(m.items) >= m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.remove(oldest.Value.(*entry))
	}
	e := &entry{key: key}
	e.element = m.order.PushFront(e)
	m.items[key] = e
	return e
}

// Must be called with lock held.
func (m *Memory) remove(e *entry) {
	m.order.Remove(e.element)
	delete(m.items, e.key)
}
