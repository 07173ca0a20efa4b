package models

import "time"

// User is an account. Email is stored normalised (trimmed, lower-case).
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
