package model

import "time"

// Role is the access level of an account, resolved once per request and injected
// into handlers. Managers may mutate products, categories and documents; regular
// users may only search, view and download.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

// User is an application account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsManager reports whether the account holds the manager role.
func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}
