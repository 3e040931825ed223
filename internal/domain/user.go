package domain

import (
	"time"
)

// User represents a registered user
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the lightweight projection of a user handed to request handlers.
// It never carries the password hash.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Identity returns the user's public projection
func (u *User) Identity() Identity {
	return Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	}
}

// Session is a server-side login session. The ID doubles as the bearer token
// carried in the session cookie.
type Session struct {
	ID           string
	UserID       string
	LastActivity time.Time
	CreatedAt    time.Time
}

// IdleFor returns how long the session has been unused at now
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// IsIdle reports whether the session has been unused for strictly longer than threshold.
func (s *Session) IsIdle(now time.Time, threshold time.Duration) bool {
	return s.IdleFor(now) > threshold
}

// Touch records activity at now
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}
