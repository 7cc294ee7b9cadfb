// Package models defines the records persisted by modhub.
package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserSummary is the part of a User that is safe to hand to the
// presentation layer.
type UserSummary struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}
