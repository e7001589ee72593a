package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrNotFound           = errors.New("not found")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("username already exists")
	// ErrProfileNotFound means an account's tagged reference points at a
	// profile that does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)
