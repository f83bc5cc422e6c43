package models

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the caller resolved by the auth middleware.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
