// Package common defines sentinel errors and the user-visible result shape
// shared by the identity, partition and activity layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Caller errors.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// Temporary; the caller may retry later.
	ErrRateLimited = errors.New("too many failed attempts")

	// Partition schema could not be brought to the current generation.
	ErrSchema = errors.New("schema error")

	// Underlying storage engine failure.
	ErrStorage = errors.New("storage error")

	// Auth errors.
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrAlreadyExists        = errors.New("already exists")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
)
