package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when no row matches
	ErrNotFound = errors.New("not found")

	// ErrDefaultCategory guards the catch-all category against deletion
	ErrDefaultCategory = errors.New("cannot delete the default category")

	// ErrAlreadyExists is returned when a unique record is created twice
	ErrAlreadyExists = errors.New("already exists")
)
