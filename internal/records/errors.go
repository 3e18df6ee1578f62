package records

import "errors"

var (
	ErrUnauthenticated = errors.New("records: unauthenticated")
	ErrNotFound        = errors.New("records: not found")
	ErrConflict        = errors.New("records: email already in use")
	ErrInvalidArgument = errors.New("records: invalid argument")
)
