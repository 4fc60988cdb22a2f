package utilities

import (
	"sync"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

// Counter tracks cache hits and misses per operation
type Counter interface {
	Read(key string) (hitCount, missCount int)
	ReadAll() *data.CacheCounters
	IncrementHit(key string) (hitCount int)
	IncrementMiss(key string) (missCount int)
	Reset()
}

type counts struct {
	hit  int
	miss int
}

type cacheCounter struct {
	sync.RWMutex
	counters map[string]*counts
}

func NewCounter() Counter {
	return &cacheCounter{
		counters: make(map[string]*counts),
	}
}

func (c *cacheCounter) Read(key string) (int, int) {
	c.RLock()
	defer c.RUnlock()

	if cnt, found := c.counters[key]; found {
		return cnt.hit, cnt.miss
	}
	return 0, 0
}

func (c *cacheCounter) ReadAll() *data.CacheCounters {
	c.RLock()
	defer c.RUnlock()

	cacheCounters := &data.CacheCounters{
		CounterHits:   make(map[string]int, len(c.counters)),
		CounterMisses: make(map[string]int, len(c.counters)),
	}
	for key, cnt := range c.counters {
		cacheCounters.CounterHits[key] = cnt.hit
		cacheCounters.CounterMisses[key] = cnt.miss
	}
	return cacheCounters
}

func (c *cacheCounter) Reset() {
	c.Lock()
	defer c.Unlock()

	c.counters = make(map[string]*counts)
}

func (c *cacheCounter) get(key string) *counts {
	cnt, found := c.counters[key]
	if !found {
		cnt = &counts{}
		c.counters[key] = cnt
	}
	return cnt
}

func (c *cacheCounter) IncrementHit(key string) int {
	c.Lock()
	defer c.Unlock()

	cnt := c.get(key)
	cnt.hit++
	return cnt.hit
}

func (c *cacheCounter) IncrementMiss(key string) int {
	c.Lock()
	defer c.Unlock()

	cnt := c.get(key)
	cnt.miss++
	return cnt.miss
}
