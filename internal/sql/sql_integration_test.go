//go:build integration

package sql_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/sql"

	"github.com/stretchr/testify/assert"
)

var envs = map[string]string{
	"DATABASE_DRIVER":        "mysql",
	"DATABASE_HOST":          "localhost",
	"DATABASE_PORT":          "3306",
	"DATABASE_NAME":          "employees",
	"DATABASE_USER":          "mysql",
	"DATABASE_PASSWORD":      "mysql",
	"DATABASE_QUERY_TIMEOUT": "10",
	"DATABASE_CREATE_SCHEMA": "true",
}

func init() {
	for _, env := range os.Environ() {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
}

type sqlTest struct {
	sql interface {
		internal.Opener
		internal.Configurer
	}
	sql.Sql
}

func newSqlTest() *sqlTest {
	s := sql.NewSql()
	return &sqlTest{
		sql: s,
		Sql: s,
	}
}

func (s *sqlTest) TestEmployeeLifecycle(t *testing.T) {
	ctx := context.TODO()

	email := "ada." + internal.GenerateId()[:8] + "@example.com"
	before := time.Now().Truncate(time.Second)
	employee, err := s.EmployeeCreate(ctx, data.EmployeeFields{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		Department: "Engineering",
	})
	assert.Nil(t, err)
	if !assert.NotNil(t, employee) {
		return
	}
	assert.NotZero(t, employee.Id)
	assert.False(t, employee.DateHired.Before(before), "%s hired before %s", employee.DateHired, before)

	employeeRead, err := s.EmployeeRead(ctx, employee.Id)
	assert.Nil(t, err)
	assert.Equal(t, employee, employeeRead)

	_, err = s.EmployeeCreate(ctx, data.EmployeeFields{
		FirstName: "Augusta",
		LastName:  "King",
		Email:     email,
	})
	assert.True(t, errors.Is(err, data.ErrDuplicateEmail))

	employees, err := s.EmployeesSearch(ctx, data.EmployeeSearch{Search: strings.ToUpper(email)})
	assert.Nil(t, err)
	assert.Len(t, employees, 1)

	employeeUpdated, err := s.EmployeeUpdate(ctx, employee.Id, data.EmployeeFields{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		Department: "IT",
	})
	assert.Nil(t, err)
	assert.Equal(t, "IT", employeeUpdated.Department)
	assert.Equal(t, employee.DateHired, employeeUpdated.DateHired)

	employees, err = s.EmployeesSearch(ctx, data.EmployeeSearch{Search: email, Department: "Engineering"})
	assert.Nil(t, err)
	assert.Empty(t, employees)

	employeeDeleted, err := s.EmployeeDelete(ctx, employee.Id)
	assert.Nil(t, err)
	assert.Equal(t, employee.Id, employeeDeleted.Id)

	_, err = s.EmployeeRead(ctx, employee.Id)
	assert.True(t, errors.Is(err, data.ErrNotFound))
	_, err = s.EmployeeDelete(ctx, employee.Id)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func (s *sqlTest) TestEmployeeIds(t *testing.T) {
	ctx := context.TODO()

	existing, err := s.EmployeesSearch(ctx, data.EmployeeSearch{})
	if !assert.Nil(t, err) {
		return
	}
	ids := make(map[int64]struct{})
	for _, employee := range existing {
		ids[employee.Id] = struct{}{}
	}
	before := time.Now().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		employee, err := s.EmployeeCreate(ctx, data.EmployeeFields{
			FirstName: "Grace",
			LastName:  "Hopper",
			Email:     "grace." + internal.GenerateId()[:8] + "@example.com",
		})
		if !assert.Nil(t, err) {
			continue
		}
		assert.NotContains(t, ids, employee.Id)
		assert.False(t, employee.DateHired.Before(before))
		ids[employee.Id] = struct{}{}
		defer func(id int64) {
			_, _ = s.EmployeeDelete(ctx, id)
		}(employee.Id)
	}
	assert.Len(t, ids, len(existing)+5)
}

func TestSqlIntegration(t *testing.T) {
	s := newSqlTest()
	err := s.sql.Configure(envs)
	assert.Nil(t, err)
	err = s.sql.Open(context.TODO())
	assert.Nil(t, err)
	t.Run("Employee Lifecycle", s.TestEmployeeLifecycle)
	t.Run("Employee Ids", s.TestEmployeeIds)
}
