package logic_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/antonio-alexander/go-employee-portal/internal/cache"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/logic"
	"github.com/antonio-alexander/go-employee-portal/internal/sql/sqltest"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/stretchr/testify/assert"
)

type logicTest struct {
	sql     *sqltest.Memory
	counter utilities.Counter
	logic.Logic
}

func newLogicTest(t *testing.T, envs map[string]string) *logicTest {
	s := sqltest.NewMemory()
	counter := utilities.NewCounter()
	l := logic.NewLogic(s, cache.NewMemory(), counter)
	if !assert.Nil(t, l.Configure(envs)) {
		assert.FailNow(t, "unable to configure logic")
	}
	if !assert.Nil(t, l.Open(context.TODO())) {
		assert.FailNow(t, "unable to open logic")
	}
	t.Cleanup(func() { _ = l.Close(context.TODO()) })
	return &logicTest{
		sql:     s,
		counter: counter,
		Logic:   l,
	}
}

// heldRead holds the first read it serves until released, after the
// store has already answered
type heldRead struct {
	*sqltest.Memory
	once     sync.Once
	started  chan struct{}
	released chan struct{}
}

func (h *heldRead) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	employee, err := h.Memory.EmployeeRead(ctx, id)
	h.once.Do(func() {
		close(h.started)
		<-h.released
	})
	return employee, err
}

func ada() data.EmployeeFields {
	return data.EmployeeFields{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Department: "Engineering",
	}
}

func TestLogicCache(t *testing.T) {
	ctx := context.TODO()
	l := newLogicTest(t, map[string]string{"LOGIC_CACHE_ENABLED": "true"})

	employee, err := l.EmployeeCreate(ctx, ada())
	assert.Nil(t, err)

	//read through
	for i := 0; i < 3; i++ {
		employeeRead, err := l.EmployeeRead(ctx, employee.Id)
		assert.Nil(t, err)
		assert.Equal(t, employee, employeeRead)
	}
	assert.Equal(t, 1, l.sql.Calls("read"))
	hits, misses := l.counter.Read("employee_read")
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)

	//search read through
	for i := 0; i < 2; i++ {
		employees, err := l.EmployeesSearch(ctx, data.EmployeeSearch{Search: "ada"})
		assert.Nil(t, err)
		assert.Len(t, employees, 1)
	}
	assert.Equal(t, 1, l.sql.Calls("search"))

	//create invalidates searches
	_, err = l.EmployeeCreate(ctx, data.EmployeeFields{
		FirstName: "Adam",
		LastName:  "Smith",
		Email:     "adam@example.com",
	})
	assert.Nil(t, err)
	employees, err := l.EmployeesSearch(ctx, data.EmployeeSearch{Search: "ada"})
	assert.Nil(t, err)
	assert.Len(t, employees, 2)
	assert.Equal(t, 2, l.sql.Calls("search"))

	//update evicts the employee
	fields := ada()
	fields.Department = "IT"
	_, err = l.EmployeeUpdate(ctx, employee.Id, fields)
	assert.Nil(t, err)
	employeeRead, err := l.EmployeeRead(ctx, employee.Id)
	assert.Nil(t, err)
	assert.Equal(t, "IT", employeeRead.Department)
	assert.Equal(t, 2, l.sql.Calls("read"))

	//delete evicts the employee and searches
	_, err = l.EmployeeDelete(ctx, employee.Id)
	assert.Nil(t, err)
	_, err = l.EmployeeRead(ctx, employee.Id)
	assert.True(t, errors.Is(err, data.ErrNotFound))
	employees, err = l.EmployeesSearch(ctx, data.EmployeeSearch{Search: "ada"})
	assert.Nil(t, err)
	assert.Len(t, employees, 1)
}

func TestLogicStaleReadNotCached(t *testing.T) {
	ctx := context.TODO()
	s := &heldRead{
		Memory:   sqltest.NewMemory(),
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
	l := logic.NewLogic(s, cache.NewMemory())
	assert.Nil(t, l.Configure(map[string]string{"LOGIC_CACHE_ENABLED": "true"}))
	assert.Nil(t, l.Open(ctx))
	defer func() { _ = l.Close(ctx) }()

	employee, err := l.EmployeeCreate(ctx, ada())
	assert.Nil(t, err)

	chRead := make(chan error, 1)
	go func() {
		_, err := l.EmployeeRead(ctx, employee.Id)
		chRead <- err
	}()
	<-s.started
	_, err = l.EmployeeDelete(ctx, employee.Id)
	assert.Nil(t, err)
	close(s.released)
	assert.Nil(t, <-chRead)

	//the read that raced the delete must not have been cached
	_, err = l.EmployeeRead(ctx, employee.Id)
	assert.True(t, errors.Is(err, data.ErrNotFound))
	assert.Equal(t, 2, s.Calls("read"))
}

func TestLogicNoCache(t *testing.T) {
	ctx := context.TODO()
	l := newLogicTest(t, map[string]string{"LOGIC_CACHE_ENABLED": "false"})

	employee, err := l.EmployeeCreate(ctx, ada())
	assert.Nil(t, err)
	for i := 0; i < 3; i++ {
		_, err := l.EmployeeRead(ctx, employee.Id)
		assert.Nil(t, err)
	}
	assert.Equal(t, 3, l.sql.Calls("read"))
	hits, misses := l.counter.Read("employee_read")
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestLogicMutateDisabled(t *testing.T) {
	ctx := context.TODO()
	l := newLogicTest(t, map[string]string{"MUTATE_DISABLED": "true"})

	_, err := l.EmployeeCreate(ctx, ada())
	assert.True(t, errors.Is(err, data.ErrMutationDisabled))
	_, err = l.EmployeeUpdate(ctx, 1, ada())
	assert.True(t, errors.Is(err, data.ErrMutationDisabled))
	_, err = l.EmployeeDelete(ctx, 1)
	assert.True(t, errors.Is(err, data.ErrMutationDisabled))
	assert.Zero(t, l.sql.Calls("create"))
	assert.Zero(t, l.sql.Calls("update"))
	assert.Zero(t, l.sql.Calls("delete"))

	employees, err := l.EmployeesSearch(ctx, data.EmployeeSearch{})
	assert.Nil(t, err)
	assert.Empty(t, employees)
}

func TestLogicErrorsNotCached(t *testing.T) {
	ctx := context.TODO()
	l := newLogicTest(t, map[string]string{"LOGIC_CACHE_ENABLED": "true"})

	_, err := l.EmployeeRead(ctx, 42)
	assert.True(t, errors.Is(err, data.ErrNotFound))
	_, err = l.EmployeeRead(ctx, 42)
	assert.True(t, errors.Is(err, data.ErrNotFound))
	assert.Equal(t, 2, l.sql.Calls("read"))

	_, err = l.EmployeeCreate(ctx, ada())
	assert.Nil(t, err)
	_, err = l.EmployeeCreate(ctx, ada())
	assert.True(t, errors.Is(err, data.ErrDuplicateEmail))
}
