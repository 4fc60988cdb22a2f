package sql

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"
)

type Sql interface {
	EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error)
}

type Connector interface {
	Connection(ctx context.Context) (*sql.DB, error)
}

type store struct {
	sync.RWMutex
	config struct {
		queryTimeout time.Duration
	}
	adapter    *Adapter
	repository *Repository
	utilities.Logger
}

// NewSql binds the adapter and the repository: each operation acquires the
// shared pool, then runs the repository statement bounded by the query
// timeout.
func NewSql(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Connector
	Sql
} {
	s := &store{
		Logger: utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case *Adapter:
			s.adapter = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	if s.adapter == nil {
		s.adapter = NewAdapter(parameters...)
	}
	s.repository = &Repository{dialect: s.adapter.dialect}
	return s
}

func (s *store) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if err := s.adapter.Configure(envs); err != nil {
		return err
	}
	if queryTimeout := envs["DATABASE_QUERY_TIMEOUT"]; queryTimeout != "" {
		i, _ := strconv.ParseInt(queryTimeout, 10, 64)
		s.config.queryTimeout = time.Duration(i) * time.Second
	}
	repository, err := NewRepository(s.adapter.Driver())
	if err != nil {
		return err
	}
	s.repository = repository
	return nil
}

func (s *store) Open(ctx context.Context) error {
	return s.adapter.Open(ctx)
}

func (s *store) Close(ctx context.Context) error {
	return s.adapter.Close(ctx)
}

func (s *store) Connection(ctx context.Context) (*sql.DB, error) {
	return s.adapter.Connection(ctx)
}

// execute bounds the connection acquisition and the statement by the query
// timeout, a timeout while waiting on the pool surfaces as a connection error
func (s *store) execute(ctx context.Context, operation string, fx func(context.Context, *Repository, Handle) error) error {
	s.RLock()
	queryTimeout, repository := s.config.queryTimeout, s.repository
	s.RUnlock()

	if queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}
	handle, err := s.adapter.Connection(ctx)
	if err != nil {
		return err
	}
	if err := fx(ctx, repository, handle); err != nil {
		switch data.KindOf(err) {
		case data.KindConnection, data.KindStore:
			s.Error(ctx, "%s failed: %s", operation, err)
		}
		return err
	}
	return nil
}

func (s *store) EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error) {
	var employee *data.Employee

	err := s.execute(ctx, "employee_create", func(ctx context.Context, r *Repository, h Handle) (err error) {
		employee, err = r.Create(ctx, h, fields)
		return
	})
	return employee, err
}

func (s *store) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	var employee *data.Employee

	err := s.execute(ctx, "employee_read", func(ctx context.Context, r *Repository, h Handle) (err error) {
		employee, err = r.Read(ctx, h, id)
		return
	})
	return employee, err
}

func (s *store) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	var employees []*data.Employee

	err := s.execute(ctx, "employees_search", func(ctx context.Context, r *Repository, h Handle) (err error) {
		employees, err = r.List(ctx, h, search)
		return
	})
	return employees, err
}

func (s *store) EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	var employee *data.Employee

	err := s.execute(ctx, "employee_update", func(ctx context.Context, r *Repository, h Handle) (err error) {
		employee, err = r.Update(ctx, h, id, fields)
		return
	})
	return employee, err
}

func (s *store) EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error) {
	var employee *data.Employee

	err := s.execute(ctx, "employee_delete", func(ctx context.Context, r *Repository, h Handle) (err error) {
		employee, err = r.Delete(ctx, h, id)
		return
	})
	return employee, err
}
