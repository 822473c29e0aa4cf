// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the only entity the service manages.
//
// ID is assigned by the store (SQLite AUTOINCREMENT) and never changes.
// Email is unique across all users; the store compares it case-insensitively.
//
// WHY PasswordHash HAS json:"-":
// The hash must never cross the API boundary, no matter which handler built the
// response. Excluding it at the type level means encoding/json simply cannot
// emit it; there is no code path that has to remember to redact it.
type User struct {
	ID           int64     `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password"` // bcrypt hash, never plaintext
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
