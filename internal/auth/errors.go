package auth

import "errors"

var (
	ErrUnauthenticated   = errors.New("auth: unauthenticated")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrNotFound          = errors.New("auth: account not found")
	ErrConflict          = errors.New("auth: account already exists")
	ErrInvalidArgument   = errors.New("auth: invalid argument")
	ErrForbidden         = errors.New("auth: forbidden")
)
