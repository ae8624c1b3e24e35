package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of profile roles. Anything outside the set is
// treated as "no access", never as a permissive default.
type Role string

const (
	RoleVolunteer Role = "VOLUNTEER"
	RoleNGO       Role = "NGO"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole normalises raw input into a known role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleVolunteer:
		return RoleVolunteer, nil
	case RoleNGO:
		return RoleNGO, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// Known reports whether the role belongs to the closed set.
func (r Role) Known() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	default:
		return false
	}
}

// Requirement describes what a protected surface needs: any authenticated
// user, or membership in an explicit role set. Constructed at the call site,
// never persisted.
type Requirement struct {
	name  string
	roles []Role
}

var (
	// AnyAuthenticated admits every signed-in user regardless of role.
	AnyAuthenticated = Requirement{name: "authenticated"}

	RequireVolunteer  = Requirement{name: "volunteer", roles: []Role{RoleVolunteer}}
	RequireNGO        = Requirement{name: "ngo", roles: []Role{RoleNGO}}
	RequireAdmin      = Requirement{name: "admin", roles: []Role{RoleAdmin}}
	RequireNGOOrAdmin = Requirement{name: "ngo_or_admin", roles: []Role{RoleNGO, RoleAdmin}}
)

// String identifies the requirement in logs and metrics.
func (req Requirement) String() string { return req.name }

// RoleBound reports whether the requirement names an explicit role set.
func (req Requirement) RoleBound() bool { return len(req.roles) > 0 }

// Roles returns the expanded role set for role-bound requirements.
func (req Requirement) Roles() []Role {
	out := make([]Role, len(req.roles))
	copy(out, req.roles)
	return out
}

// Satisfied reports whether the given role meets the requirement. Unknown
// roles never satisfy a role-bound requirement.
func (req Requirement) Satisfied(role Role) bool {
	if !req.RoleBound() {
		return true
	}
	if !role.Known() {
		return false
	}
	for _, r := range req.roles {
		if r == role {
			return true
		}
	}
	return false
}
