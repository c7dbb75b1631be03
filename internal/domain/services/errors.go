package services

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPlatform = errors.New("unknown platform")
	ErrNoSource        = errors.New("import source is required")
	ErrAlreadyResolved = errors.New("item already resolved")
	ErrInvalidTarget   = errors.New("resolve target does not exist")
)
