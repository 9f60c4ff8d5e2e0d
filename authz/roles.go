// Package authz models the chat role hierarchy and its action permissions.
// Roles are ordered; AtLeast compares rank, CanPerform consults the explicit
// per-role action grants (blocked users may still file reports).
package authz

import (
	"github.com/pkg/errors"
)

// Role is a chat participation level, ordered from least to most
// privileged.
type Role int

const (
	RoleBlocked Role = iota
	RoleNotParticipating
	RoleAudience
	RoleEntrant
	RoleManager
	RoleOwner
)

// Action is an operation a participant may attempt within a chat.
type Action string

const (
	ActionView     Action = "view"
	ActionPost     Action = "post"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionManage   Action = "manage"
	ActionEditChat Action = "editChat"
	ActionReport   Action = "report"
)

var roleNames = map[Role]string{
	RoleBlocked:          "blocked",
	RoleNotParticipating: "notParticipating",
	RoleAudience:         "audience",
	RoleEntrant:          "entrant",
	RoleManager:          "manager",
	RoleOwner:            "owner",
}

var rolesByName = map[string]Role{
	"blocked":          RoleBlocked,
	"notParticipating": RoleNotParticipating,
	"audience":         RoleAudience,
	"entrant":          RoleEntrant,
	"manager":          RoleManager,
	"owner":            RoleOwner,
}

// permissions lists the actions each role may perform. Grants are explicit
// rather than cumulative: reporting is open to everyone, including blocked
// users.
var permissions = map[Role][]Action{
	RoleBlocked:          {ActionReport},
	RoleNotParticipating: {ActionReport},
	RoleAudience:         {ActionView, ActionReport},
	RoleEntrant:          {ActionView, ActionPost, ActionEdit, ActionDelete, ActionReport},
	RoleManager:          {ActionView, ActionPost, ActionEdit, ActionDelete, ActionManage, ActionReport},
	RoleOwner:            {ActionView, ActionPost, ActionEdit, ActionDelete, ActionManage, ActionEditChat, ActionReport},
}

// ParseRole maps a role name to its Role value.
func ParseRole(name string) (Role, error) {
	role, ok := rolesByName[name]
	if !ok {
		return RoleBlocked, errors.Errorf("unknown role %q", name)
	}
	return role, nil
}

func (r Role) String() string {
	name, ok := roleNames[r]
	if !ok {
		return "unknown"
	}
	return name
}

// AtLeast reports whether the role ranks at or above the required role.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// CanPerform reports whether the role is granted the action.
func (r Role) CanPerform(action Action) bool {
	for _, granted := range permissions[r] {
		if granted == action {
			return true
		}
	}
	return false
}
