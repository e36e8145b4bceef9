package common

import (
	"errors"
	"strings"
)

// Result is the shape every user-visible outcome takes at the external
// boundary: a success flag and a human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK returns a successful Result with the given message.
func OK(msg string) Result {
	return Result{Success: true, Message: msg}
}

// ResultFromError converts err into a failed Result. Validation and
// not-found errors keep the wrapped detail. Storage, schema and unknown
// errors are reduced to a fixed message; callers log the full error.
func ResultFromError(err error) Result {
	if err == nil {
		return OK("ok")
	}

	switch {
	case errors.Is(err, ErrValidation):
		return Result{Message: detail(err, ErrValidation)}
	case errors.Is(err, ErrNotFound):
		return Result{Message: detail(err, ErrNotFound)}
	case errors.Is(err, ErrRateLimited):
		return Result{Message: "Too many failed login attempts, try again later"}
	case errors.Is(err, ErrInvalidCredentials):
		return Result{Message: "Invalid username or password"}
	case errors.Is(err, ErrAlreadyExists):
		return Result{Message: "Username already exists"}
	case errors.Is(err, ErrRegistrationDisabled):
		return Result{Message: "Registration is currently disabled"}
	case errors.Is(err, ErrTokenExpired):
		return Result{Message: "Token expired"}
	case errors.Is(err, ErrInvalidToken):
		return Result{Message: "Invalid token"}
	case errors.Is(err, ErrSchema):
		return Result{Message: "Failed to verify activities table"}
	case errors.Is(err, ErrStorage):
		return Result{Message: "Storage error"}
	default:
		return Result{Message: "Internal error"}
	}
}

// detail strips the sentinel prefix from a "<sentinel>: <detail>" message.
func detail(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
