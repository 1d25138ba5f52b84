package policy

import (
	"fmt"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
)

// Role is the permission class carried in a session token.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleResearcher Role = "researcher"
	RoleConsumer   Role = "consumer"
	RoleUser       Role = "user"
	RoleBuoy       Role = "buoy"
)

// DefaultRole is assigned at registration when none is requested.
const DefaultRole = RoleUser

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleResearcher, RoleConsumer, RoleUser, RoleBuoy}

// ParseRole maps s onto the closed role set. An empty string yields
// DefaultRole.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return DefaultRole, nil
	}
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, s)
}

// Operation is an action on telemetry records.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (o Operation) mutates() bool {
	return o == OpUpdate || o == OpDelete
}
