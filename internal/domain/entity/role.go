package entity

import "fmt"

// Role is the closed set of profile roles. Every switch over Role lists both
// cases and panics on anything else.
type Role string

const (
	// RoleLawyer identifies an advocate enrolled with a bar council.
	RoleLawyer Role = "lawyer"
	// RoleJudge identifies a presiding officer attached to a court.
	RoleJudge Role = "judge"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleLawyer, RoleJudge:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored or submitted value into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}

	return role, nil
}

// RoleIDLabel names the role-specific identifier a profile must carry.
func (r Role) RoleIDLabel() string {
	switch r {
	case RoleLawyer:
		return "enrollment_number"
	case RoleJudge:
		return "court_id"
	default:
		panic(fmt.Sprintf("entity: unhandled role %q", string(r)))
	}
}
