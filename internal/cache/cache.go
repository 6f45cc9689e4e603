package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss возвращается, когда ключа нет или его срок истёк.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache — key-value кэш с TTL. Кэш вспомогательный: его недоступность
// не должна ломать бизнес-операции.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// memoryCache — in-memory реализация для локальной разработки и тестов.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory создаёт in-memory кэш.
func NewMemory() Cache {
	return &memoryCache{entries: make(map[string]entry)}
}

func (c *memoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{value: cp, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

var _ Cache = (*memoryCache)(nil)
