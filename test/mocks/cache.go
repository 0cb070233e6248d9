// Package mocks provides in-memory test doubles shared across service tests.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of cache.Cache.
// Expirations are recorded but never enforced.
type MockCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	calls   map[string]int
	FailAll error // returned by every operation when set
}

// NewMockCache creates a new mock cache instance
func NewMockCache() *MockCache {
	return &MockCache{
		data:  make(map[string]string),
		ttls:  make(map[string]time.Duration),
		calls: make(map[string]int),
	}
}

func (m *MockCache) record(op string) error {
	m.calls[op]++
	return m.FailAll
}

// Get retrieves a value; missing keys yield an empty string like Redis.
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("get"); err != nil {
		return "", err
	}
	return m.data[key], nil
}

// Set stores a value.
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("set"); err != nil {
		return err
	}
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return nil
}

// Del deletes keys.
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("del"); err != nil {
		return err
	}
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return nil
}

// Exists counts how many of keys are present.
func (m *MockCache) Exists(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("exists"); err != nil {
		return 0, err
	}
	var count int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			count++
		}
	}
	return count, nil
}

// SetNX sets a key only if it doesn't exist.
func (m *MockCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("setnx"); err != nil {
		return false, err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return true, nil
}

// DelIfEquals deletes key only while it holds value.
func (m *MockCache) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("delifequals"); err != nil {
		return false, err
	}
	if current, ok := m.data[key]; !ok || current != value {
		return false, nil
	}
	delete(m.data, key)
	delete(m.ttls, key)
	return true, nil
}

// Expire records a TTL on an existing key.
func (m *MockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("expire"); err != nil {
		return err
	}
	if _, ok := m.data[key]; ok {
		m.ttls[key] = expiration
	}
	return nil
}

// Health returns FailAll.
func (m *MockCache) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FailAll
}

// Close is a no-op for mock
func (m *MockCache) Close() error {
	return nil
}

// Has reports whether key is present.
func (m *MockCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// TTL returns the expiration last set for key.
func (m *MockCache) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Calls returns how many times op ("get", "set", "setnx", ...) was invoked.
func (m *MockCache) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Clear resets the mock cache (useful for tests)
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	m.ttls = make(map[string]time.Duration)
	m.calls = make(map[string]int)
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
