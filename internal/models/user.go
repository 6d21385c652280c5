package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Users own ledgers; the people inside a
// ledger are plain names and need no account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's login (unique).
	Email string

	// DisplayName is shown to other users.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string

	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
