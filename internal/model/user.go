package model

import "time"

// User represents an account record as stored in the `users` table.
// Roles are not stored on the user row; they live in `user_roles` so a
// grant can be added or revoked without touching credentials.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	IsActive     – whether the account may sign in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the privilege level of an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// DefaultRole is granted to every identity when it is created.
const DefaultRole = RoleCustomer

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleCustomer }

// RoleGrant models a row in the `user_roles` table.  A user may hold
// several grants; holding RoleAdmin is what makes an identity an admin.
//
// Fields:
//
//	UserID    – grantee.
//	Role      – granted role.
//	CreatedAt – when the grant was made.
type RoleGrant struct {
	UserID    uint64
	Role      Role
	CreatedAt time.Time
}

// Profile is the display information of a signed-in user.  One profile
// exists per user and is created lazily on first visit if missing.
type Profile struct {
	ID        string    `json:"id"`
	UserID    uint64    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA‑256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (nil while active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
