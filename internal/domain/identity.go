package domain

import "time"

// Roles known to the credential store. RoleUser authenticates with a
// password, RolePartner with a one-time code only, RoleAdmin is reserved for
// operators and is never self-registered.
const (
	RoleUser    = "user"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// PasswordBearing reports whether the role proves possession with a password.
func PasswordBearing(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// Identity is the durable, authoritative record of a committed account.
// Email is unique across all roles; SubjectID is immutable once assigned.
// PasswordHash is empty for code-only roles.
type Identity struct {
	SubjectID    string    `json:"subject_id" dynamodbav:"subject_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
