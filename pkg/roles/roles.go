package roles

import (
	"fmt"
)

// Role is the closed set of privilege levels. Levels form a total order:
// RoleClient < RoleAdmin < RoleSuperAdmin.
type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Action classifies the operations the policy engine arbitrates.
type Action string

const (
	ActionCreateProduct Action = "product.create"
	ActionManageProduct Action = "product.manage"
	ActionPurgeCatalog  Action = "catalog.purge"
	ActionListAccounts  Action = "account.list"
	ActionChangeRole    Action = "account.change_role"
)

// actionMinimums maps each action to the lowest role allowed to perform it.
var actionMinimums = map[Action]Role{
	ActionCreateProduct: RoleClient,
	ActionManageProduct: RoleAdmin,
	ActionPurgeCatalog:  RoleAdmin,
	ActionListAccounts:  RoleAdmin,
	ActionChangeRole:    RoleSuperAdmin,
}

func Parse(value string) (Role, error) {
	switch Role(value) {
	case RoleClient:
		return RoleClient, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	}
	return "", fmt.Errorf("roles: unknown role %q", value)
}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) Level() int {
	switch r {
	case RoleClient:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return 0
}

func (r Role) AtLeast(minimum Role) bool {
	return r.Level() >= minimum.Level()
}

// Allows reports whether a role clears the minimum required for an action.
// Unknown actions deny; unknown roles sit below every minimum.
func (r Role) Allows(action Action) bool {
	minimum, ok := actionMinimums[action]
	if !ok {
		return false
	}
	return r.AtLeast(minimum)
}

// AssignableTarget reports whether the role is a legal target for the
// role-change workflow. super_admin can never be granted through it.
func AssignableTarget(r Role) bool {
	switch r {
	case RoleClient, RoleAdmin:
		return true
	case RoleSuperAdmin:
		return false
	}
	return false
}
