package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

const tableEmployees string = "employees"

const employeeColumns string = "id, first_name, last_name, email, department, date_hired"

// likeEscape is the escape character used for search patterns so % and _
// typed by a user match literally
const likeEscape string = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// Repository builds and runs the employee statements; every value is bound
// as a parameter, never interpolated.
type Repository struct {
	dialect dialect
}

func NewRepository(driver string) (*Repository, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}
	return &Repository{dialect: d}, nil
}

func employeeCriteria(search data.EmployeeSearch) (string, []any) {
	var args []any
	var criteria []string

	if search.HasSearch() {
		pattern := "%" + likeReplacer.Replace(strings.ToLower(search.Search)) + "%"
		criteria = append(criteria, fmt.Sprintf(
			"(LOWER(first_name) LIKE ? ESCAPE '%[1]s' OR LOWER(last_name) LIKE ? ESCAPE '%[1]s' OR LOWER(email) LIKE ? ESCAPE '%[1]s')",
			likeEscape))
		args = append(args, pattern, pattern, pattern)
	}
	if search.HasDepartment() {
		criteria = append(criteria, "department = ?")
		args = append(args, search.Department)
	}
	if len(criteria) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(criteria, " AND "), args
}

func employeeScan(scanFx func(...any) error) (*data.Employee, error) {
	var department sql.NullString
	var dateHired time.Time

	employee := new(data.Employee)
	if err := scanFx(
		&employee.Id,
		&employee.FirstName,
		&employee.LastName,
		&employee.Email,
		&department,
		&dateHired,
	); err != nil {
		return nil, err
	}
	employee.Department = department.String
	employee.DateHired = dateHired.UTC()
	return employee, nil
}

func nullDepartment(department string) sql.NullString {
	return sql.NullString{String: department, Valid: department != ""}
}

// translate converts store errors into domain errors so nothing above the
// repository has to know about driver codes
func (r *Repository) translate(err error, message string) error {
	var e *data.Error

	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return e
	case errors.Is(err, sql.ErrNoRows):
		return data.ErrNotFound
	case r.dialect.isDuplicate(err):
		return data.ErrDuplicateEmail
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn):
		return data.NewConnectionError("unable to acquire a connection", err)
	default:
		return data.NewStoreError(message, err)
	}
}

func (r *Repository) readEmployee(ctx context.Context, handle Handle, id int64) (*data.Employee, error) {
	query := r.dialect.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?;",
		employeeColumns, tableEmployees))
	return employeeScan(handle.QueryRowContext(ctx, query, id).Scan)
}

func (r *Repository) List(ctx context.Context, handle Handle, search data.EmployeeSearch) ([]*data.Employee, error) {
	criteria, args := employeeCriteria(search)
	query := fmt.Sprintf("SELECT %s FROM %s", employeeColumns, tableEmployees)
	if criteria != "" {
		query += " " + criteria
	}
	query = r.dialect.rebind(query + " ORDER BY date_hired DESC, id DESC;")
	rows, err := handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.translate(err, "unable to list employees")
	}
	defer rows.Close()

	employees := []*data.Employee{}
	for rows.Next() {
		employee, err := employeeScan(rows.Scan)
		if err != nil {
			return nil, r.translate(err, "unable to list employees")
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, r.translate(err, "unable to list employees")
	}
	return employees, nil
}

func (r *Repository) Read(ctx context.Context, handle Handle, id int64) (*data.Employee, error) {
	employee, err := r.readEmployee(ctx, handle, id)
	if err != nil {
		return nil, r.translate(err, "unable to read employee")
	}
	return employee, nil
}

func (r *Repository) Create(ctx context.Context, handle Handle, fields data.EmployeeFields) (*data.Employee, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	args := []any{fields.FirstName, fields.LastName, fields.Email,
		nullDepartment(fields.Department)}
	query := fmt.Sprintf("INSERT INTO %s (first_name, last_name, email, department) VALUES (?, ?, ?, ?)",
		tableEmployees)
	if r.dialect.returning() {
		query = r.dialect.rebind(query + " RETURNING " + employeeColumns + ";")
		employee, err := employeeScan(handle.QueryRowContext(ctx, query, args...).Scan)
		if err != nil {
			return nil, r.translate(err, "unable to create employee")
		}
		return employee, nil
	}
	result, err := handle.ExecContext(ctx, query+";", args...)
	if err != nil {
		return nil, r.translate(err, "unable to create employee")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, r.translate(err, "unable to create employee")
	}
	employee, err := r.readEmployee(ctx, handle, id)
	if err != nil {
		return nil, r.translate(err, "unable to read created employee")
	}
	return employee, nil
}

// Update checks for existence first so an update racing a delete reports
// not found rather than silently updating nothing, then rewrites every
// editable field in a single statement; date_hired is never touched.
func (r *Repository) Update(ctx context.Context, handle Handle, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	var existing int64

	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	query := r.dialect.rebind(fmt.Sprintf("SELECT id FROM %s WHERE id = ?;", tableEmployees))
	if err := handle.QueryRowContext(ctx, query, id).Scan(&existing); err != nil {
		return nil, r.translate(err, "unable to update employee")
	}
	args := []any{fields.FirstName, fields.LastName, fields.Email,
		nullDepartment(fields.Department), id}
	query = fmt.Sprintf("UPDATE %s SET first_name = ?, last_name = ?, email = ?, department = ? WHERE id = ?",
		tableEmployees)
	if r.dialect.returning() {
		query = r.dialect.rebind(query + " RETURNING " + employeeColumns + ";")
		employee, err := employeeScan(handle.QueryRowContext(ctx, query, args...).Scan)
		if err != nil {
			return nil, r.translate(err, "unable to update employee")
		}
		return employee, nil
	}
	if _, err := handle.ExecContext(ctx, query+";", args...); err != nil {
		return nil, r.translate(err, "unable to update employee")
	}
	employee, err := r.readEmployee(ctx, handle, id)
	if err != nil {
		return nil, r.translate(err, "unable to read updated employee")
	}
	return employee, nil
}

// Delete removes the employee and returns its last known values
func (r *Repository) Delete(ctx context.Context, handle Handle, id int64) (*data.Employee, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", tableEmployees)
	if r.dialect.returning() {
		query = r.dialect.rebind(query + " RETURNING " + employeeColumns + ";")
		employee, err := employeeScan(handle.QueryRowContext(ctx, query, id).Scan)
		if err != nil {
			return nil, r.translate(err, "unable to delete employee")
		}
		return employee, nil
	}
	employee, err := r.readEmployee(ctx, handle, id)
	if err != nil {
		return nil, r.translate(err, "unable to delete employee")
	}
	result, err := handle.ExecContext(ctx, query+";", id)
	if err != nil {
		return nil, r.translate(err, "unable to delete employee")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, r.translate(err, "unable to delete employee")
	}
	if n == 0 {
		return nil, data.ErrNotFound
	}
	return employee, nil
}
