package cache

import (
	"context"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"
)

type memoryEmployee struct {
	employee *data.Employee
	expires  time.Time
}

type memorySearch struct {
	ids     []int64
	expires time.Time
}

// memoryCache expires entries lazily on read, there's no pruning goroutine
type memoryCache struct {
	sync.RWMutex
	employees map[int64]memoryEmployee
	searches  map[string]memorySearch
	config    struct {
		ttl time.Duration
	}
	now func() time.Time
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &memoryCache{
		employees: make(map[int64]memoryEmployee),
		searches:  make(map[string]memorySearch),
		now:       time.Now,
		Logger:    utilities.NewNopLogger(),
	}
	c.config.ttl = defaultTTL
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		case func() time.Time:
			c.now = p
		}
	}
	return c
}

func (c *memoryCache) expired(expires time.Time) bool {
	return !expires.IsZero() && !c.now().Before(expires)
}

func (c *memoryCache) expiry() time.Time {
	if c.config.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.config.ttl)
}

func (c *memoryCache) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	configureTTL(envs, &c.config.ttl)
	return nil
}

func (c *memoryCache) Open(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close(ctx context.Context) error {
	return c.Clear(ctx)
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[int64]memoryEmployee)
	c.searches = make(map[string]memorySearch)
	return nil
}

func (c *memoryCache) SearchesClear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.searches = make(map[string]memorySearch)
	return nil
}

func (c *memoryCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	cached, ok := c.employees[id]
	if !ok || c.expired(cached.expires) {
		return nil, ErrEmployeeNotCached
	}
	return copyEmployee(cached.employee), nil
}

func (c *memoryCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	cached, ok := c.searches[searchKey]
	if !ok || c.expired(cached.expires) {
		return nil, ErrEmployeeSearchNotCached
	}
	employees := make([]*data.Employee, 0, len(cached.ids))
	for _, id := range cached.ids {
		e, ok := c.employees[id]
		if !ok || c.expired(e.expires) {
			c.Trace(ctx, "employee %d evicted, search %s no longer valid", id, searchKey)
			return nil, ErrEmployeeSearchNotCached
		}
		employees = append(employees, copyEmployee(e.employee))
	}
	return employees, nil
}

func (c *memoryCache) EmployeesWrite(ctx context.Context, search *data.EmployeeSearch, employees ...*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	expires := c.expiry()
	for _, e := range employees {
		c.employees[e.Id] = memoryEmployee{
			employee: copyEmployee(e),
			expires:  expires,
		}
	}
	if search == nil {
		return nil
	}
	searchKey, err := search.ToKey()
	if err != nil {
		return err
	}
	c.searches[searchKey] = memorySearch{
		ids:     newSearchEntry(employees).Ids,
		expires: expires,
	}
	return nil
}

func (c *memoryCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	c.Lock()
	defer c.Unlock()

	for _, id := range ids {
		delete(c.employees, id)
	}
	return nil
}
