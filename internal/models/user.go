package models

import "time"

// User is a row of the shared identity store.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
	// LastLogin is nil until the first successful login.
	LastLogin *time.Time
}
