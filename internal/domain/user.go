package domain

import "time"

// Role is a security role granted to an account.
type Role string

const (
	RoleUser      Role = "ROLE_USER"
	RoleDeveloper Role = "ROLE_DEVELOPER"
	RoleQA        Role = "ROLE_QA"
	RoleAdmin     Role = "ROLE_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleQA, RoleAdmin:
		return true
	}
	return false
}

// User is an account that acts on projects, trackers and bugs.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user was granted role. Every account implicitly has ROLE_USER.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	if role == RoleUser {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Is reports whether u is the account identified by userID.
func (u *User) Is(userID string) bool {
	return u != nil && userID != "" && u.ID == userID
}
