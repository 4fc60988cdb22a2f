package controller

import (
	"context"
	"sync"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

// Form backs the add and edit pages
type Form interface {
	// Load reads the employee being edited to prefill the form
	Load(ctx context.Context, id int64) (data.EmployeeFields, error)

	// Submit validates fields and creates (id of zero) or updates the
	// employee; a validation failure is a *data.Error with per-field
	// messages and nothing is sent
	Submit(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error)
}

type form struct {
	sync.Mutex
	collaborators
	config
	submitting bool
}

func NewForm(parameters ...any) interface {
	internal.Configurer
	Form
} {
	f := &form{
		collaborators: newCollaborators(parameters...),
	}
	f.config.timeout = defaultTimeout
	return f
}

func (f *form) Configure(envs map[string]string) error {
	f.Lock()
	defer f.Unlock()

	return f.config.configure(envs)
}

func (f *form) Load(ctx context.Context, id int64) (data.EmployeeFields, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.timeout)
	defer cancel()
	employee, err := f.employees.EmployeeRead(ctx, id)
	if err != nil {
		f.Error(ctx, "error while reading employee (%d): %s", id, err)
		f.notifier.NotifyError(ctx, ErrorMessage(err))
		return data.EmployeeFields{}, err
	}
	return employee.Fields(), nil
}

func (f *form) Submit(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	var employee *data.Employee
	var err error

	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	f.Lock()
	if f.submitting {
		f.Unlock()
		return nil, ErrSubmitInProgress
	}
	f.submitting = true
	timeout := f.config.timeout
	f.Unlock()
	defer func() {
		f.Lock()
		f.submitting = false
		f.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	message := data.MessageEmployeeCreated
	if id > 0 {
		message = data.MessageEmployeeUpdated
		employee, err = f.employees.EmployeeUpdate(ctx, id, fields)
	} else {
		employee, err = f.employees.EmployeeCreate(ctx, fields)
	}
	if err != nil {
		f.Error(ctx, "error while submitting employee: %s", err)
		f.notifier.NotifyError(ctx, ErrorMessage(err))
		return nil, err
	}
	f.notifier.NotifySuccess(ctx, message)
	return employee, nil
}
