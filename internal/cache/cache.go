package cache

import (
	"strings"
	"sync"
	"time"
)

// Item is a cached value with its expiry
type Item struct {
	Value      any
	Expiration time.Time
}

// Cache is a TTL cache shared by the models
type Cache struct {
	items map[string]Item
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// New creates a cache and starts its janitor. Close stops it.
func New(janitorInterval time.Duration) *Cache {
	c := NewWithClock(time.Now)
	if janitorInterval > 0 {
		go c.janitor(janitorInterval)
	}
	return c
}

// NewWithClock creates a cache without a janitor, reading time from now
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		items: make(map[string]Item),
		now:   now,
		stop:  make(chan struct{}),
	}
}

// Set stores a value for ttl
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = Item{
		Value:      value,
		Expiration: c.now().Add(ttl),
	}
}

// Get returns a live value
func (c *Cache) Get(key string) (any, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if !c.now().Before(item.Expiration) {
		c.Delete(key)
		return nil, false
	}

	return item.Value, true
}

// Delete removes a key
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix
func (c *Cache) DeletePrefix(prefix string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Clear removes everything
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]Item)
}

// Len counts stored items, expired or not
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Close stops the janitor. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Sweep drops expired items
func (c *Cache) Sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.Expiration) {
			delete(c.items, key)
		}
	}
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
