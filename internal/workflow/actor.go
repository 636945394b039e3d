package workflow

import "strings"

// Role is a permission granted to a user.
type Role string

const (
	RoleEmployee         Role = "employee"
	RoleManager          Role = "manager"
	RoleSME              Role = "sme"
	RoleBoard            Role = "board"
	RoleChallengeManager Role = "challenge_manager"
	RoleJudge            Role = "judge"
	RoleAdmin            Role = "admin"
	RoleSystem           Role = "system"
)

// SystemActorID identifies automatic decisions in audit trails.
const SystemActorID uint = 0

// Actor is the authenticated user (or the system) performing an operation.
type Actor struct {
	ID    uint
	Roles []Role
}

// NewActor normalises raw role names into an actor.
func NewActor(id uint, roles ...string) Actor {
	normalized := make([]Role, 0, len(roles))
	for _, role := range roles {
		r := strings.ToLower(strings.TrimSpace(role))
		if r != "" {
			normalized = append(normalized, Role(r))
		}
	}
	return Actor{ID: id, Roles: normalized}
}

// System is the actor attributed with automatic decisions.
func System() Actor {
	return Actor{ID: SystemActorID, Roles: []Role{RoleSystem}}
}

// HasRole reports whether the actor holds the role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor holds at least one of the roles.
func (a Actor) HasAnyRole(roles []Role) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// IsSystem reports whether the actor is the automatic decision maker.
func (a Actor) IsSystem() bool {
	return a.HasRole(RoleSystem)
}

// IsPrivileged reports whether the actor holds any role beyond employee.
func (a Actor) IsPrivileged() bool {
	for _, r := range a.Roles {
		if r != RoleEmployee && r != "" {
			return true
		}
	}
	return false
}

// PrimaryRole returns the most privileged role, used for audit labelling.
func (a Actor) PrimaryRole() string {
	order := []Role{RoleSystem, RoleAdmin, RoleBoard, RoleSME, RoleManager, RoleChallengeManager, RoleJudge, RoleEmployee}
	for _, role := range order {
		if a.HasRole(role) {
			return string(role)
		}
	}
	if len(a.Roles) > 0 {
		return string(a.Roles[0])
	}
	return ""
}
