// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// The internal ID (xid) doubles as the identity the MCP service keys all
// preference-context state by, so it must never change after registration.
//
// WHY PasswordHash AND NOT Password?
// We store a bcrypt hash, never the plaintext. The `json:"-"` tag excludes
// the field from JSON entirely, so a User can be written to an API response
// without leaking credentials.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
