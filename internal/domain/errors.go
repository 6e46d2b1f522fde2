package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates that a caller-provided value violates
	// a precondition.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExportFailed indicates that the local artifact could not be
	// prepared. This class is job-fatal: no host is touched after it.
	ErrExportFailed = errors.New("artifact export failed")
)
