package repository

import "errors"

var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrAccountLocked   = errors.New("account is locked")
)
