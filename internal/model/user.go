package model

import "time"

// Staff roles.  ADMIN reviews payments and manages staff; GATE redeems
// tickets at the entrance.
const (
	RoleAdmin = "ADMIN"
	RoleGate  = "GATE"
)

// User is a staff account stored in the users table.  Parents never log
// in; they only hold ticket numbers.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models a row of refresh_tokens.  Only the SHA-256 hash of
// the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
