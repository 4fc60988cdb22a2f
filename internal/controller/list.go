package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"

	"github.com/pkg/errors"
)

type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateRefreshing State = "refreshing"
	StateError      State = "error"
)

// ListState is a copy of the list controller's state
type ListState struct {
	State       State
	Search      string
	Department  string
	Employees   []*data.Employee
	Departments []string
	Err         error
}

type List interface {
	// SetSearch schedules a fetch once the search text has been left alone
	// for the debounce period, each call reschedules it
	SetSearch(search string)

	// SetDepartment fetches immediately, a pending search is folded into
	// the fetch
	SetDepartment(department string)

	Refresh()

	// Delete asks for confirmation, then deletes the employee and removes it
	// from the list; the list is left alone on failure
	Delete(ctx context.Context, id int64) error

	State() ListState
}

type list struct {
	sync.Mutex
	sync.WaitGroup
	collaborators
	config
	ctx         context.Context
	cancel      context.CancelFunc
	timer       *time.Timer
	generation  uint64
	closed      bool
	loaded      bool
	state       State
	search      string
	department  string
	results     []*data.Employee
	departments []string
	err         error
}

func NewList(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	List
} {
	l := &list{
		collaborators: newCollaborators(parameters...),
		closed:        true,
		state:         StateIdle,
		department:    data.DepartmentAll,
	}
	l.config.debounce = defaultDebounce
	l.config.timeout = defaultTimeout
	return l
}

func (l *list) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	return l.config.configure(envs)
}

// Open mounts the list, loading everything
func (l *list) Open(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.collaborators.employees == nil {
		return errors.New("list requires employees")
	}
	if !l.closed {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.closed = false
	l.fetch(ctx)
	return nil
}

// Close cancels any pending search and waits for in-flight fetches, whose
// results are discarded
func (l *list) Close(ctx context.Context) error {
	l.Lock()
	if l.closed {
		l.Unlock()
		return nil
	}
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.cancel()
	l.Unlock()

	l.Wait()
	return nil
}

func (l *list) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// fetch starts a fetch for the current search, it must be called with the
// lock held; only the fetch of the latest generation is allowed to update
// state
func (l *list) fetch(ctx context.Context) {
	l.generation++
	generation := l.generation
	search := data.EmployeeSearch{
		Search:     l.search,
		Department: l.department,
	}
	if l.loaded {
		l.state = StateRefreshing
	} else {
		l.state = StateLoading
	}
	correlationId := internal.CorrelationIdFromCtx(ctx)
	if correlationId == "" {
		correlationId = internal.GenerateId()
	}
	parent, timeout := l.ctx, l.config.timeout
	l.Add(1)
	go func() {
		defer l.Done()

		ctx, cancel := context.WithTimeout(internal.CtxWithCorrelationId(parent,
			correlationId), timeout)
		defer cancel()
		l.Trace(ctx, "fetching employees (%d): %q, %q", generation, search.Search, search.Department)
		employees, err := l.employees.EmployeesSearch(ctx, search)
		l.complete(ctx, generation, employees, err)
	}()
}

func (l *list) complete(ctx context.Context, generation uint64, employees []*data.Employee, err error) {
	l.Lock()
	if l.closed || generation != l.generation {
		l.Unlock()
		l.Debug(ctx, "discarded stale fetch (%d)", generation)
		return
	}
	if err != nil {
		l.state, l.err = StateError, err
		l.Unlock()
		l.Error(ctx, "error while fetching employees: %s", err)
		l.notifier.NotifyError(ctx, ErrorMessage(err))
		return
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	l.state, l.err, l.loaded = StateIdle, nil, true
	l.results = employees
	l.departments = data.Departments(employees)
	l.Unlock()
}

func (l *list) SetSearch(search string) {
	l.Lock()
	defer l.Unlock()

	if l.closed {
		return
	}
	l.search = search
	l.generation++
	generation := l.generation
	l.stopTimer()
	l.timer = time.AfterFunc(l.config.debounce, func() {
		l.Lock()
		defer l.Unlock()

		// a later edit (or department change) owns the state now
		if l.closed || generation != l.generation {
			return
		}
		l.timer = nil
		l.fetch(context.Background())
	})
}

func (l *list) SetDepartment(department string) {
	l.Lock()
	defer l.Unlock()

	if l.closed {
		return
	}
	if department == "" {
		department = data.DepartmentAll
	}
	l.department = department
	l.stopTimer()
	l.fetch(context.Background())
}

func (l *list) Refresh() {
	l.Lock()
	defer l.Unlock()

	if l.closed {
		return
	}
	l.stopTimer()
	l.fetch(context.Background())
}

func (l *list) Delete(ctx context.Context, id int64) error {
	l.Lock()
	closed, timeout := l.closed, l.config.timeout
	name := fmt.Sprintf("employee %d", id)
	if i := slices.IndexFunc(l.results, func(e *data.Employee) bool { return e.Id == id }); i >= 0 {
		name = l.results[i].Name()
	}
	l.Unlock()

	if closed {
		return ErrNotOpen
	}
	if !l.confirmer.Confirm(ctx, name) {
		l.Debug(ctx, "delete of employee (%d) cancelled", id)
		return ErrDeleteCancelled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := l.employees.EmployeeDelete(ctx, id); err != nil {
		l.Error(ctx, "error while deleting employee (%d): %s", id, err)
		l.notifier.NotifyError(ctx, ErrorMessage(err))
		return err
	}
	l.Lock()
	l.results = slices.DeleteFunc(slices.Clone(l.results), func(e *data.Employee) bool {
		return e.Id == id
	})
	l.departments = data.Departments(l.results)
	l.Unlock()
	l.notifier.NotifySuccess(ctx, data.MessageEmployeeDeleted)
	return nil
}

func (l *list) State() ListState {
	l.Lock()
	defer l.Unlock()

	return ListState{
		State:       l.state,
		Search:      l.search,
		Department:  l.department,
		Employees:   slices.Clone(l.results),
		Departments: slices.Clone(l.departments),
		Err:         l.err,
	}
}
