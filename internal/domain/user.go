package domain

import "time"

// Role enumerates caller roles.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleAgent          Role = "agent"
	RoleDepartmentHead Role = "department-head"
	RoleUser           Role = "user"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleDepartmentHead, RoleUser:
		return true
	}
	return false
}

// Privileged reports whether the role may operate on any ticket.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleAgent
}

// UserStatus represents account lifecycle states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the persisted account behind an actor.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	DepartmentID   *string
	OrganizationID *string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Actor is the resolved caller invoking a workflow operation.
type Actor struct {
	ID             string
	Name           string
	Email          string
	Role           Role
	DepartmentID   *string
	OrganizationID *string
}

// ActorFromUser derives the workflow actor view of an account.
func ActorFromUser(u *User) Actor {
	return Actor{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		DepartmentID:   u.DepartmentID,
		OrganizationID: u.OrganizationID,
	}
}
