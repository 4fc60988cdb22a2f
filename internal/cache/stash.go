package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/antonio-alexander/go-stash"
)

// stashCache delegates storage and eviction to a go-stash backend; it only
// remembers the search keys it wrote so they can be cleared on mutation
type stashCache struct {
	sync.Mutex
	searchKeys map[string]struct{}
	stash      interface {
		stash.Configurer
		stash.Parameterizer
		stash.Initializer
		stash.Shutdowner
	}
	stash.Stasher
	utilities.Logger
}

func NewStash(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &stashCache{
		searchKeys: make(map[string]struct{}),
		Logger:     utilities.NewNopLogger(),
	}
	for _, p := range parameters {
		switch p := p.(type) {
		case utilities.Logger:
			c.Logger = p
		case interface {
			stash.Configurer
			stash.Parameterizer
			stash.Initializer
			stash.Shutdowner
			stash.Stasher
		}:
			c.stash = p
			c.Stasher = p
		}
	}
	if c.stash != nil {
		c.stash.SetParameters(parameters...)
	}
	return c
}

func stashEmployeeKey(id int64) string {
	return fmt.Sprintf("employee:%d", id)
}

func stashSearchKey(searchKey string) string {
	return "search:" + searchKey
}

func (c *stashCache) Configure(envs map[string]string) error {
	if c.stash != nil {
		if err := c.stash.Configure(envs); err != nil {
			return err
		}
	}
	return nil
}

func (c *stashCache) Open(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Initialize()
	}
	return nil
}

func (c *stashCache) Close(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Shutdown()
	}
	return nil
}

func (c *stashCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.searchKeys = make(map[string]struct{})
	return c.Stasher.Clear()
}

func (c *stashCache) SearchesClear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	for searchKey := range c.searchKeys {
		if err := c.Stasher.Delete(searchKey); err != nil {
			c.Trace(ctx, "error while deleting search (%s): %s", searchKey, err)
		}
	}
	c.searchKeys = make(map[string]struct{})
	return nil
}

func (c *stashCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	employee := &data.Employee{}
	if err := c.Stasher.Read(stashEmployeeKey(id), employee); err != nil {
		c.Trace(ctx, "cache miss for employee: %d (%s)", id, err)
		return nil, ErrEmployeeNotCached
	}
	c.Trace(ctx, "cache hit for employee: %d", id)
	return employee, nil
}

func (c *stashCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	entry := &searchEntry{}
	if err := c.Stasher.Read(stashSearchKey(searchKey), entry); err != nil {
		c.Trace(ctx, "cache miss for employee search: %s", searchKey)
		return nil, ErrEmployeeSearchNotCached
	}
	employees := make([]*data.Employee, 0, len(entry.Ids))
	for _, id := range entry.Ids {
		employee := &data.Employee{}
		if err := c.Stasher.Read(stashEmployeeKey(id), employee); err != nil {
			// a partial search is useless, drop it so the next read goes
			// to the store
			c.Trace(ctx, "employee %d evicted, search %s no longer valid", id, searchKey)
			if err := c.Stasher.Delete(stashSearchKey(searchKey)); err != nil {
				c.Error(ctx, "error while deleting search (%s): %s", searchKey, err)
			}
			return nil, ErrEmployeeSearchNotCached
		}
		employees = append(employees, employee)
	}
	c.Trace(ctx, "cache hit for employee search: %s", searchKey)
	return employees, nil
}

func (c *stashCache) EmployeesWrite(ctx context.Context, search *data.EmployeeSearch, employees ...*data.Employee) error {
	for _, employee := range employees {
		if _, err := c.Stasher.Write(stashEmployeeKey(employee.Id), employee); err != nil {
			c.Error(ctx, "error while writing employee (%d): %s", employee.Id, err)
			return err
		}
		c.Trace(ctx, "cached employee: %d", employee.Id)
	}
	if search == nil {
		return nil
	}
	searchKey, err := search.ToKey()
	if err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()

	if _, err := c.Stasher.Write(stashSearchKey(searchKey), newSearchEntry(employees)); err != nil {
		c.Error(ctx, "error while writing search: %s", err)
		return err
	}
	c.searchKeys[stashSearchKey(searchKey)] = struct{}{}
	c.Trace(ctx, "cached employees search: %s", searchKey)
	return nil
}

func (c *stashCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if err := c.Stasher.Delete(stashEmployeeKey(id)); err != nil {
			// deleting something that isn't cached isn't a failure
			c.Trace(ctx, "unable to evict employee %d: %s", id, err)
			continue
		}
		c.Trace(ctx, "evicted cached employee: %d", id)
	}
	return nil
}
