package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

const defaultTTL time.Duration = time.Minute

var (
	ErrEmployeeNotCached       = errors.New("employee not cached")
	ErrEmployeeSearchNotCached = errors.New("employee search not cached")
)

// Cache is an optional read-through cache for employees and search results.
// A search is stored as the ordered list of ids it returned so results keep
// the store's ordering; if any of those employees has been evicted the search
// is treated as a miss.
type Cache interface {
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)

	// EmployeesWrite caches the employees and, when search is not nil,
	// the search that returned them
	EmployeesWrite(ctx context.Context, search *data.EmployeeSearch, employees ...*data.Employee) error
	EmployeesDelete(ctx context.Context, ids ...int64) error
	SearchesClear(ctx context.Context) error
}

// searchEntry is the cached result of a search
type searchEntry struct {
	Ids []int64 `json:"ids"`
}

func (s *searchEntry) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

func (s *searchEntry) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}

func newSearchEntry(employees []*data.Employee) *searchEntry {
	ids := make([]int64, 0, len(employees))
	for _, employee := range employees {
		ids = append(ids, employee.Id)
	}
	return &searchEntry{Ids: ids}
}

func copyEmployee(e *data.Employee) *data.Employee {
	employee := &data.Employee{}
	*employee = *e
	return employee
}

func configureTTL(envs map[string]string, ttl *time.Duration) {
	if s, ok := envs["CACHE_TTL"]; ok {
		if i, err := strconv.Atoi(s); err == nil {
			*ttl = time.Duration(i) * time.Second
		}
	}
}
