package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/metrics"
)

// Local is an in-process LRU with per-entry TTL. It serves as the finding
// cache when no Redis address is configured.
type Local struct {
	mu   sync.Mutex
	cap  int
	list *list.List               // front = most recent
	m    map[string]*list.Element // key -> element

	cleanup chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	logger  *zap.Logger
}

type localEntry struct {
	key string
	val string
	exp time.Time
}

// NewLocal creates a local cache with the given capacity.
func NewLocal(capacity int, logger *zap.Logger) *Local {
	if capacity <= 0 {
		capacity = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Local{
		cap:     capacity,
		list:    list.New(),
		m:       make(map[string]*list.Element, capacity),
		cleanup: make(chan struct{}),
		logger:  logger,
	}
	c.wg.Add(1)
	go c.cleanupExpired()
	return c
}

func (c *Local) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[key]; ok {
		ent := el.Value.(localEntry)
		if ent.exp.After(time.Now()) {
			c.list.MoveToFront(el)
			metrics.CacheHits.Inc()
			return ent.val, true
		}
		// expired: remove
		c.list.Remove(el)
		delete(c.m, key)
	}
	metrics.CacheMisses.Inc()
	return "", false
}

func (c *Local) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[key]; ok {
		el.Value = localEntry{key: key, val: value, exp: time.Now().Add(ttl)}
		c.list.MoveToFront(el)
		return
	}
	el := c.list.PushFront(localEntry{key: key, val: value, exp: time.Now().Add(ttl)})
	c.m[key] = el
	if c.list.Len() > c.cap {
		lru := c.list.Back()
		if lru != nil {
			ent := lru.Value.(localEntry)
			delete(c.m, ent.key)
			c.list.Remove(lru)
			metrics.CacheEvictions.Inc()
		}
	}
}

// Len returns the number of cached entries.
func (c *Local) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Close stops the cleanup goroutine.
func (c *Local) Close() {
	c.once.Do(func() { close(c.cleanup) })
	c.wg.Wait()
}

func (c *Local) cleanupExpired() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.cleanup:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, el := range c.m {
				if ent := el.Value.(localEntry); ent.exp.Before(now) {
					c.list.Remove(el)
					delete(c.m, key)
					metrics.CacheEvictions.Inc()
				}
			}
			c.mu.Unlock()
		}
	}
}
