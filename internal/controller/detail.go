package controller

import (
	"context"
	"sync"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

// Detail backs the view page for a single employee
type Detail interface {
	Load(ctx context.Context, id int64) (*data.Employee, error)

	// Delete asks for confirmation, deletes the loaded employee and then
	// navigates back to the list
	Delete(ctx context.Context) error

	Employee() *data.Employee
}

type detail struct {
	sync.Mutex
	collaborators
	config
	employee *data.Employee
}

func NewDetail(parameters ...any) interface {
	internal.Configurer
	Detail
} {
	d := &detail{
		collaborators: newCollaborators(parameters...),
	}
	d.config.timeout = defaultTimeout
	return d
}

func (d *detail) Configure(envs map[string]string) error {
	d.Lock()
	defer d.Unlock()

	return d.config.configure(envs)
}

func (d *detail) Load(ctx context.Context, id int64) (*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.timeout)
	defer cancel()
	employee, err := d.employees.EmployeeRead(ctx, id)
	if err != nil {
		d.Error(ctx, "error while reading employee (%d): %s", id, err)
		d.notifier.NotifyError(ctx, ErrorMessage(err))
		return nil, err
	}
	d.Lock()
	d.employee = employee
	d.Unlock()
	return employee, nil
}

func (d *detail) Delete(ctx context.Context) error {
	d.Lock()
	employee := d.employee
	d.Unlock()

	if employee == nil {
		return ErrNotLoaded
	}
	if !d.confirmer.Confirm(ctx, employee.Name()) {
		return ErrDeleteCancelled
	}
	deleteCtx, cancel := context.WithTimeout(ctx, d.config.timeout)
	defer cancel()
	if _, err := d.employees.EmployeeDelete(deleteCtx, employee.Id); err != nil {
		d.Error(ctx, "error while deleting employee (%d): %s", employee.Id, err)
		d.notifier.NotifyError(ctx, ErrorMessage(err))
		return err
	}
	d.Lock()
	d.employee = nil
	d.Unlock()
	d.notifier.NotifySuccess(ctx, data.MessageEmployeeDeleted)
	d.navigator.Navigate(ctx, RouteList)
	return nil
}

func (d *detail) Employee() *data.Employee {
	d.Lock()
	defer d.Unlock()

	return d.employee
}
