package logic

import (
	"context"
	"strconv"
	"sync"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/cache"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/sql"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"
)

const (
	counterEmployeeRead    string = "employee_read"
	counterEmployeesSearch string = "employees_search"
)

// Logic is what the request handlers call, it has the same shape as the
// store so the cache can sit in between transparently
type Logic interface {
	sql.Sql
}

type logic struct {
	sync.RWMutex
	sql.Sql
	cache      cache.Cache
	cacheMutex sync.Mutex
	generation uint64
	counter    utilities.Counter
	config     struct {
		cacheEnabled   bool
		mutateDisabled bool
	}
	utilities.Logger
}

func NewLogic(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Logic
} {
	l := &logic{
		Logger:  utilities.NewNopLogger(),
		counter: utilities.NewCounter(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case sql.Sql:
			l.Sql = p
		case cache.Cache:
			l.cache = p
		case utilities.Counter:
			l.counter = p
		case utilities.Logger:
			l.Logger = p
		}
	}
	return l
}

func (l *logic) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	if cacheEnabled, ok := envs["LOGIC_CACHE_ENABLED"]; ok {
		l.config.cacheEnabled, _ = strconv.ParseBool(cacheEnabled)
	}
	if mutateDisabled, ok := envs["MUTATE_DISABLED"]; ok {
		l.config.mutateDisabled, _ = strconv.ParseBool(mutateDisabled)
	}
	return nil
}

func (l *logic) Open(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.config.cacheEnabled && l.cache == nil {
		l.Info(ctx, "cache enabled but no cache provided, reads go to the store")
		l.config.cacheEnabled = false
	}
	if l.config.cacheEnabled {
		l.Info(ctx, "cache enabled")
	}
	if l.config.mutateDisabled {
		l.Info(ctx, "mutation disabled")
	}
	return nil
}

func (l *logic) Close(ctx context.Context) error {
	return nil
}

func (l *logic) settings() (cacheEnabled, mutateDisabled bool) {
	l.RLock()
	defer l.RUnlock()

	return l.config.cacheEnabled, l.config.mutateDisabled
}

// invalidate evicts the mutated employee and drops every cached search
// since any of them could now be stale, bumping the generation keeps a read
// that started before the mutation from putting its result back
func (l *logic) invalidate(ctx context.Context, ids ...int64) {
	l.cacheMutex.Lock()
	defer l.cacheMutex.Unlock()

	l.generation++
	if len(ids) > 0 {
		if err := l.cache.EmployeesDelete(ctx, ids...); err != nil {
			l.Error(ctx, "error while deleting employees %v from cache: %s", ids, err)
		}
	}
	if err := l.cache.SearchesClear(ctx); err != nil {
		l.Error(ctx, "error while clearing cached searches: %s", err)
	}
}

func (l *logic) currentGeneration() uint64 {
	l.cacheMutex.Lock()
	defer l.cacheMutex.Unlock()

	return l.generation
}

// cacheWrite only writes if no mutation was invalidated since generation
// was read
func (l *logic) cacheWrite(ctx context.Context, generation uint64, search *data.EmployeeSearch, employees ...*data.Employee) error {
	l.cacheMutex.Lock()
	defer l.cacheMutex.Unlock()

	if l.generation != generation {
		l.Trace(ctx, "skipping cache write, store was mutated while reading")
		return nil
	}
	return l.cache.EmployeesWrite(ctx, search, employees...)
}

func (l *logic) EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error) {
	cacheEnabled, mutateDisabled := l.settings()
	if mutateDisabled {
		return nil, data.ErrMutationDisabled
	}
	employee, err := l.Sql.EmployeeCreate(ctx, fields)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		l.invalidate(ctx)
	}
	return employee, nil
}

func (l *logic) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	cacheEnabled, _ := l.settings()
	if cacheEnabled {
		employee, err := l.cache.EmployeeRead(ctx, id)
		if err == nil {
			l.counter.IncrementHit(counterEmployeeRead)
			return employee, nil
		}
		l.counter.IncrementMiss(counterEmployeeRead)
		l.Trace(ctx, "employee (%d) not read from cache: %s", id, err)
	}
	generation := l.currentGeneration()
	employee, err := l.Sql.EmployeeRead(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		if err := l.cacheWrite(ctx, generation, nil, employee); err != nil {
			l.Error(ctx, "error while writing employee (%d) to cache: %s", id, err)
		}
	}
	return employee, nil
}

func (l *logic) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	cacheEnabled, _ := l.settings()
	if cacheEnabled {
		employees, err := l.cache.EmployeesRead(ctx, search)
		if err == nil {
			l.counter.IncrementHit(counterEmployeesSearch)
			return employees, nil
		}
		l.counter.IncrementMiss(counterEmployeesSearch)
		l.Trace(ctx, "employees search not read from cache: %s", err)
	}
	generation := l.currentGeneration()
	employees, err := l.Sql.EmployeesSearch(ctx, search)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		if err := l.cacheWrite(ctx, generation, &search, employees...); err != nil {
			l.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (l *logic) EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	cacheEnabled, mutateDisabled := l.settings()
	if mutateDisabled {
		return nil, data.ErrMutationDisabled
	}
	employee, err := l.Sql.EmployeeUpdate(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		l.invalidate(ctx, id)
	}
	return employee, nil
}

func (l *logic) EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error) {
	cacheEnabled, mutateDisabled := l.settings()
	if mutateDisabled {
		return nil, data.ErrMutationDisabled
	}
	employee, err := l.Sql.EmployeeDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheEnabled {
		l.invalidate(ctx, id)
	}
	return employee, nil
}
