//go:build integration

package cache_test

import (
	"testing"

	"github.com/antonio-alexander/go-employee-portal/internal/cache"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"
)

func TestCacheRedis(t *testing.T) {
	testCache(t, newCacheTest(cache.NewRedis()))
}

func TestCacheStashMemory(t *testing.T) {
	stash := memory.New()
	_ = stash.Configure(envs)
	testCache(t, newCacheTest(cache.NewStash(stash)))
}

func TestCacheStashRedis(t *testing.T) {
	stash := redis.New()
	_ = stash.Configure(envs)
	testCache(t, newCacheTest(cache.NewStash(stash)))
}
