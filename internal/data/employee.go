package data

import (
	"encoding/json"
	"strings"
	"time"
)

type Employee struct {
	Id         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Department string    `json:"department,omitempty"` //empty is unassigned
	DateHired  time.Time `json:"dateHired"`
}

func (e *Employee) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *Employee) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employee) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// EmployeeFields are the editable fields, create and update always carry all
// of them
type EmployeeFields struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// Normalize trims the name and department fields; email is kept verbatim so
// the address pattern sees exactly what was submitted.
func (f EmployeeFields) Normalize() EmployeeFields {
	return EmployeeFields{
		FirstName:  strings.TrimSpace(f.FirstName),
		LastName:   strings.TrimSpace(f.LastName),
		Email:      f.Email,
		Department: strings.TrimSpace(f.Department),
	}
}

// Validate runs the form validator and the department catalog check,
// the returned error is a *Error of KindValidation
func (f EmployeeFields) Validate() error {
	if fields := ValidateEmployee(f.FirstName, f.LastName, f.Email); len(fields) > 0 {
		_, firstNameMissing := fields[FieldFirstName]
		_, lastNameMissing := fields[FieldLastName]
		if firstNameMissing || lastNameMissing || fields[FieldEmail] == MessageEmailRequired {
			return NewValidationError(MessageRequiredFields, fields)
		}
		return NewValidationError(MessageInvalidEmail, fields)
	}
	if !IsDepartment(f.Department) {
		return NewValidationError(MessageInvalidDepartment, map[string]string{
			FieldDepartment: MessageInvalidDepartment,
		})
	}
	return nil
}

func (e *Employee) Fields() EmployeeFields {
	return EmployeeFields{
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Department: e.Department,
	}
}
