// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// EventType classifies a history entry.
type EventType string

// Lifecycle events recorded in the history log.
const (
	EventLogin   EventType = "login"
	EventRefresh EventType = "refresh"
	EventLogout  EventType = "logout"
)

// User is a principal stored on the server. Passwords are kept only as salted hashes.
type User struct {
	ID        uuid.UUID // PK
	Login     string    // unique
	Email     string    // unique
	PwdHash   []byte    // Argon2id(password, PwdSalt)
	PwdSalt   []byte    // per-user salt
	FirstName string
	LastName  string
	IsAdmin   bool
	RoleID    uuid.UUID // FK -> roles.id
	CreatedAt time.Time
}

// Role is an ordinal privilege level. Lvl values are unique, so "one level
// up/down" resolves to at most one row.
type Role struct {
	ID          uuid.UUID // PK
	Lvl         int       // unique, totally ordered; 0 is the default role
	Name        string
	Description string
	MaxYear     int
}

// HistoryEntry is an immutable audit record of a lifecycle outcome.
type HistoryEntry struct {
	ID        int64
	UserID    uuid.UUID
	UserAgent string
	EventType EventType
	Result    bool
	CreatedAt time.Time
}

// TokenPair collects a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time // access token expiry (for diagnostics)
}
