// Package sqltest provides an in-memory implementation of sql.Sql that
// follows the repository's rules (validation, unique email, ordering) for
// testing the layers above it.
package sqltest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

type Memory struct {
	sync.Mutex
	lastId    int64
	employees map[int64]*data.Employee
	calls     map[string]int
	err       error
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[int64]*data.Employee),
		calls:     make(map[string]int),
		now:       time.Now,
	}
}

// Calls returns how many times operation (create, read, search, update or
// delete) has been called
func (m *Memory) Calls(operation string) int {
	m.Lock()
	defer m.Unlock()

	return m.calls[operation]
}

// Fail makes every subsequent operation return err, nil restores normal
// behaviour
func (m *Memory) Fail(err error) {
	m.Lock()
	defer m.Unlock()

	m.err = err
}

func (m *Memory) emailExists(email string, except int64) bool {
	for id, employee := range m.employees {
		if id != except && employee.Email == email {
			return true
		}
	}
	return false
}

func copyEmployee(e *data.Employee) *data.Employee {
	employee := *e
	return &employee
}

func (m *Memory) EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.calls["create"]++
	if m.err != nil {
		return nil, m.err
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if m.emailExists(fields.Email, 0) {
		return nil, data.ErrDuplicateEmail
	}
	m.lastId++
	employee := &data.Employee{
		Id:         m.lastId,
		FirstName:  fields.FirstName,
		LastName:   fields.LastName,
		Email:      fields.Email,
		Department: fields.Department,
		DateHired:  m.now().UTC(),
	}
	m.employees[employee.Id] = employee
	return copyEmployee(employee), nil
}

func (m *Memory) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.calls["read"]++
	if m.err != nil {
		return nil, m.err
	}
	employee, ok := m.employees[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return copyEmployee(employee), nil
}

func matches(employee *data.Employee, search data.EmployeeSearch) bool {
	if search.HasDepartment() && employee.Department != search.Department {
		return false
	}
	if !search.HasSearch() {
		return true
	}
	s := strings.ToLower(search.Search)
	return strings.Contains(strings.ToLower(employee.FirstName), s) ||
		strings.Contains(strings.ToLower(employee.LastName), s) ||
		strings.Contains(strings.ToLower(employee.Email), s)
}

func (m *Memory) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.calls["search"]++
	if m.err != nil {
		return nil, m.err
	}
	employees := []*data.Employee{}
	for _, employee := range m.employees {
		if matches(employee, search) {
			employees = append(employees, copyEmployee(employee))
		}
	}
	sort.Slice(employees, func(i, j int) bool {
		if !employees[i].DateHired.Equal(employees[j].DateHired) {
			return employees[i].DateHired.After(employees[j].DateHired)
		}
		return employees[i].Id > employees[j].Id
	})
	return employees, nil
}

func (m *Memory) EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.calls["update"]++
	if m.err != nil {
		return nil, m.err
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	employee, ok := m.employees[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	if m.emailExists(fields.Email, id) {
		return nil, data.ErrDuplicateEmail
	}
	employee.FirstName = fields.FirstName
	employee.LastName = fields.LastName
	employee.Email = fields.Email
	employee.Department = fields.Department
	return copyEmployee(employee), nil
}

func (m *Memory) EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.calls["delete"]++
	if m.err != nil {
		return nil, m.err
	}
	employee, ok := m.employees[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	delete(m.employees, id)
	return employee, nil
}
