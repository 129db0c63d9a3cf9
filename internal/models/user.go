package models

import "github.com/google/uuid"

type UserRole string

const (
	RoleCitizen UserRole = "CITIZEN"
	RoleAdmin   UserRole = "ADMIN"
)

// User is owned by the external identity subsystem; the engine only ever
// consumes it as an opaque principal with an id and a role.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  UserRole  `json:"role"`
}
