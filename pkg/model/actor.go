package model

type ActorRole string

const (
	RoleOwner  ActorRole = "owner"
	RoleSitter ActorRole = "sitter"
	RoleAdmin  ActorRole = "admin"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleSitter, RoleAdmin:
		return true
	}
	return false
}

type Actor struct {
	ID   string
	Role ActorRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
