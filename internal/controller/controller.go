package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/client"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/pkg/errors"
)

const (
	defaultDebounce time.Duration = 500 * time.Millisecond
	defaultTimeout  time.Duration = 10 * time.Second
)

// RouteList is where the detail flow navigates after a delete
const RouteList string = "/"

var (
	ErrNotOpen          = errors.New("controller not open")
	ErrDeleteCancelled  = errors.New("delete cancelled")
	ErrSubmitInProgress = errors.New("submit in progress")
	ErrNotLoaded        = errors.New("employee not loaded")
)

// Employees is the resource surface the controllers drive, it's satisfied by
// client.Client
type Employees interface {
	EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error)
}

// Confirmer asks the user to confirm deleting the named employee
type Confirmer interface {
	Confirm(ctx context.Context, name string) bool
}

type Notifier interface {
	NotifySuccess(ctx context.Context, message string)
	NotifyError(ctx context.Context, message string)
}

type Navigator interface {
	Navigate(ctx context.Context, route string)
}

type nop struct{}

func (nop) Confirm(context.Context, string) bool { return false }

func (nop) NotifySuccess(context.Context, string) {}

func (nop) NotifyError(context.Context, string) {}

func (nop) Navigate(context.Context, string) {}

// collaborators is shared by every controller; a single parameter may
// provide more than one collaborator
type collaborators struct {
	employees Employees
	confirmer Confirmer
	notifier  Notifier
	navigator Navigator
	utilities.Logger
}

func newCollaborators(parameters ...any) collaborators {
	c := collaborators{
		confirmer: nop{},
		notifier:  nop{},
		navigator: nop{},
		Logger:    utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case Employees:
			c.employees = p
		case utilities.Logger:
			c.Logger = p
		}
		if p, ok := parameter.(Confirmer); ok {
			c.confirmer = p
		}
		if p, ok := parameter.(Notifier); ok {
			c.notifier = p
		}
		if p, ok := parameter.(Navigator); ok {
			c.navigator = p
		}
	}
	return c
}

// ErrorMessage is what gets shown to the user for err
func ErrorMessage(err error) string {
	var e *data.Error

	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Kind == data.KindConnection {
		return client.MessageConnectionFailed
	}
	return e.Message
}

type config struct {
	debounce time.Duration
	timeout  time.Duration
}

func (c *config) configure(envs map[string]string) error {
	if debounce, ok := envs["CONTROLLER_DEBOUNCE"]; ok {
		i, err := strconv.ParseInt(debounce, 10, 64)
		if err != nil || i < 0 {
			return errors.Errorf("invalid CONTROLLER_DEBOUNCE: %s", debounce)
		}
		c.debounce = time.Duration(i) * time.Millisecond
	}
	if timeout, ok := envs["CONTROLLER_TIMEOUT"]; ok {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil || i <= 0 {
			return errors.Errorf("invalid CONTROLLER_TIMEOUT: %s", timeout)
		}
		c.timeout = time.Duration(i) * time.Second
	}
	return nil
}
