package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied indicates the caller lacks a required permission.
	ErrPermissionDenied = errors.New("permission denied")
)
