package data

import (
	"regexp"
	"strings"
)

const (
	FieldFirstName  string = "firstName"
	FieldLastName   string = "lastName"
	FieldEmail      string = "email"
	FieldDepartment string = "department"
)

const (
	MessageFirstNameRequired string = "First name is required"
	MessageLastNameRequired  string = "Last name is required"
	MessageEmailRequired     string = "Email is required"
	MessageEmailInvalid      string = "Please enter a valid email address"
	MessageRequiredFields    string = "First name, last name, and email are required"
	MessageInvalidEmail      string = "Invalid email format"
	MessageInvalidDepartment string = "Invalid department"
)

// emailPattern treats any unicode space (and the vertical tab and byte order
// mark, which \s in RE2 leaves out) as whitespace
var emailPattern = regexp.MustCompile(`^[^\s\x0B\p{Z}\x{FEFF}@]+@[^\s\x0B\p{Z}\x{FEFF}@]+\.[^\s\x0B\p{Z}\x{FEFF}@]+$`)

// ValidateEmployee is the form validator shared by the create and edit flows
// (and re-run by the repository), an empty map means the fields are valid.
func ValidateEmployee(firstName, lastName, email string) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(firstName) == "" {
		errs[FieldFirstName] = MessageFirstNameRequired
	}
	if strings.TrimSpace(lastName) == "" {
		errs[FieldLastName] = MessageLastNameRequired
	}
	switch {
	case strings.TrimSpace(email) == "":
		errs[FieldEmail] = MessageEmailRequired
	case !emailPattern.MatchString(email):
		errs[FieldEmail] = MessageEmailInvalid
	}
	return errs
}
