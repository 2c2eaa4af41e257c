package domain

import "errors"

// Tree errors - raised by rename, move and copy
var (
	// ErrResourceNotFound indicates the target path does not resolve to any resource
	ErrResourceNotFound = errors.New("resource not found")

	// ErrDestinationNotFound indicates the destination is missing or is not a folder
	ErrDestinationNotFound = errors.New("destination folder not found")

	// ErrInvalidMove indicates the destination is the target itself or nested inside it
	ErrInvalidMove = errors.New("cannot move or copy a folder into itself")

	// ErrPathCollision indicates the computed destination path already exists
	ErrPathCollision = errors.New("path already exists")
)

// Adapter errors
var (
	// ErrNotFound indicates the requested backend location does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the backend location already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied indicates insufficient permissions or a path escaping its root
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrSourceNotFound indicates referenced source doesn't exist
	ErrSourceNotFound = errors.New("source not found")
)
