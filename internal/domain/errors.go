package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported device type")
	ErrInactive        = errors.New("device inactive")
	ErrInvalidAction   = errors.New("invalid control action")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("already exists")
)
