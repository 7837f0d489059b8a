package auth

import (
	"fmt"
	"strings"
)

// Role classifies a user and gates which dashboard content is shown.
type Role string

const (
	RoleCoach   Role = "coach"
	RolePlayer  Role = "player"
	RoleAthlete Role = "athlete"
	RoleAdmin   Role = "admin"
)

// DefaultRole is used when registration does not name one.
const DefaultRole = RolePlayer

// Roles lists the closed set of roles.
var Roles = []Role{RoleCoach, RolePlayer, RoleAthlete, RoleAdmin}

// ParseRole normalises case and whitespace and rejects roles outside the set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsCoach reports whether coach-only content applies. Every other role sees
// athlete content.
func (r Role) IsCoach() bool { return r == RoleCoach }

// Label is the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleCoach:
		return "Coach"
	case RoleAdmin:
		return "Admin"
	default:
		return "Athlete"
	}
}

// Audience is the plural used in placeholder copy.
func (r Role) Audience() string {
	if r.IsCoach() {
		return "coaches"
	}
	return "athletes"
}
