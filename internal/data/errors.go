package data

import "errors"

type ErrorKind string

const (
	KindBadRequest     ErrorKind = "bad_request"
	KindValidation     ErrorKind = "validation"
	KindDuplicateEmail ErrorKind = "duplicate_email"
	KindNotFound       ErrorKind = "not_found"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindConnection     ErrorKind = "connection"
	KindStore          ErrorKind = "store"
)

// Error is the tagged error every layer above the store deals in, driver
// specific errors never make it past the repository.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

var (
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "Employee not found"}
	ErrDuplicateEmail = &Error{Kind: KindDuplicateEmail, Message: "Email already exists"}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrInvalidId      = &Error{Kind: KindBadRequest, Message: "Invalid employee ID"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so errors.Is(err, ErrNotFound) holds for any not found
// error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NewBadRequest(message string, err error) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Err: err}
}

func NewConnectionError(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

func NewStoreError(message string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or an empty
// kind if there isn't one
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrMutationDisabled is returned by every write while the service is
// running read-only
var ErrMutationDisabled = &Error{Kind: KindBadRequest, Message: "Mutation disabled"}
